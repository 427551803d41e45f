package faucet

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	timeout      = 15
	writeTimeout = 150 // wallet sync and send can take minutes on a cold wallet
)

// Router returns the API definition.
func (f *Faucet) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", f.homeHandler)
	r.HandleFunc("/health", f.healthHandler).Methods("GET")    // service health
	r.HandleFunc("/stats", f.statsHandler).Methods("GET")      // balances and counters
	r.HandleFunc("/history", f.historyHandler).Methods("GET")  // transactions sent
	r.HandleFunc("/request", f.requestHandler).Methods("POST") // faucet drip
	r.HandleFunc("/address", f.addressHandler).Methods("GET")  // wallet addresses
	r.HandleFunc("/sync", f.syncHandler).Methods("POST")       // sync the wallet
	r.HandleFunc("/shield", f.shieldHandler).Methods("POST")   // transparent to orchard
	r.HandleFunc("/send", f.sendHandler).Methods("POST")       // orchard to address

	return r
}

// Init sets up and starts the http/https server to service the RESTful API for the faucet. If sslPort, sslCert
// and sslKey are informed, it will start an https (TLS) server on the specified endpoint. It returns when Stop is
// called or when a server fails.
func (f *Faucet) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var g errgroup.Group

	r := f.Router()

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()

		return "faucet already stopped"
	}

	// start http server
	if port != "" {
		s := newServer(r, endpoint+":"+port)
		f.s = s

		g.Go(func() error { return f.serve("http", s.ListenAndServe) })
		f.log.Info("listening to API http requests", zap.String("addr", s.Addr))
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		ss := newServer(r, endpoint+":"+sslPort)
		f.ss = ss

		g.Go(func() error { return f.serve("https", func() error { return ss.ListenAndServeTLS(sslCert, sslKey) }) })
		f.log.Info("listening to API https requests", zap.String("addr", ss.Addr))
	}
	f.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- g.Wait() }()

	// wait for servers to be shutdown
	select {
	case err := <-errc:
		if err == nil {
			<-f.sc
		}

		return fmt.Sprintf("shutdown servers: %v", err)
	case <-f.sc:
		return fmt.Sprintf("shutdown servers: %v", <-errc)
	}
}

func newServer(h http.Handler, addr string) *http.Server {
	return &http.Server{
		Handler:      h,
		Addr:         addr,
		WriteTimeout: writeTimeout * time.Second,
		ReadTimeout:  timeout * time.Second,
	}
}

// serve runs listen; a server closed by Stop is not an error.
func (f *Faucet) serve(name string, listen func() error) error {
	if err := listen(); !errors.Is(err, http.ErrServerClosed) {
		f.log.Error(name+" server", zap.Error(err))

		return fmt.Errorf("%s server: %w", name, err)
	}

	return nil
}
