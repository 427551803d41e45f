// Package backend pings the indexing backend (lightwalletd or zaino) the wallet syncs from. Both serve the
// CompactTxStreamer gRPC service; readiness is a GetLatestBlock call answering with the indexed height.
//
// The request (an empty ChainSpec) and the reply (BlockID{height = 1, hash = 2}) are tiny, so they are encoded with
// protowire and sent through a pass-through codec instead of generated stubs.
package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protowire"
)

// GetLatestBlock is the full gRPC method name.
const GetLatestBlock = "/cash.z.wallet.sdk.rpc.CompactTxStreamer/GetLatestBlock"

// ErrDecode is returned when the reply is not a valid BlockID.
var ErrDecode = errors.New("cannot decode BlockID")

// Frame carries an already encoded protobuf message.
type Frame struct {
	Data []byte
}

// RawCodec passes Frames through unchanged. It registers under the "proto" name so peers see a regular
// application/grpc+proto call.
type RawCodec struct{}

func (RawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("raw codec: unexpected type %T", v)
	}

	return f.Data, nil
}

func (RawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("raw codec: unexpected type %T", v)
	}

	f.Data = append(f.Data[:0], data...)

	return nil
}

func (RawCodec) Name() string {
	return "proto"
}

// Client is a connection to a CompactTxStreamer server.
type Client struct {
	conn   *grpc.ClientConn
	target string
}

// New returns a client for uri (ie. http://zaino:9067). The connection is established lazily on the first call.
func New(uri string) (*Client, error) {
	target, creds := parse(uri)

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", uri, err)
	}

	return &Client{conn: conn, target: target}, nil
}

func parse(uri string) (string, credentials.TransportCredentials) {
	switch {
	case strings.HasPrefix(uri, "https://"):
		return strings.TrimPrefix(uri, "https://"), credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	case strings.HasPrefix(uri, "http://"):
		return strings.TrimPrefix(uri, "http://"), insecure.NewCredentials()
	}

	return uri, insecure.NewCredentials()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LatestHeight returns the height of the latest block indexed by the backend.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	var out Frame

	if err := c.conn.Invoke(ctx, GetLatestBlock, &Frame{}, &out, grpc.ForceCodec(RawCodec{})); err != nil {
		return 0, fmt.Errorf("backend %s: %w", c.target, err)
	}

	return DecodeHeight(out.Data)
}

// DecodeHeight returns field 1 (height) of an encoded BlockID. A missing field is height 0.
func DecodeHeight(b []byte) (uint64, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, fmt.Errorf("%w: %w", ErrDecode, protowire.ParseError(n))
		}

		b = b[n:]

		if num == 1 && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return 0, fmt.Errorf("%w: %w", ErrDecode, protowire.ParseError(m))
			}

			return v, nil
		}

		if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
			return 0, fmt.Errorf("%w: %w", ErrDecode, protowire.ParseError(n))
		}

		b = b[n:]
	}

	return 0, nil
}

// EncodeBlockID encodes a BlockID; servers and tests use it to answer GetLatestBlock.
func EncodeBlockID(height uint64, hash []byte) []byte {
	var b []byte

	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, height)

	if len(hash) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, hash)
	}

	return b
}
