package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"hlssafe/internal/encoding"
)

// cancelTimeout bounds the best-effort Cancel sent when a caller abandons
// an encode.
const cancelTimeout = 5 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call issues method and waits for the reply or ctx, whichever comes first.
func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	pending := c.client.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		return done.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartEncode asks the daemon to launch an encode.
func (c *Client) StartEncode(ctx context.Context, req encoding.Request) (*EncodeResponse, error) {
	var resp EncodeResponse
	if err := c.call(ctx, "Encode", EncodeRequest{Request: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Output fetches diagnostic chunks for a job.
func (c *Client) Output(ctx context.Context, req OutputRequest) (*OutputResponse, error) {
	var resp OutputResponse
	if err := c.call(ctx, "Output", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Result fetches a job's terminal result.
func (c *Client) Result(ctx context.Context, req ResultRequest) (*ResultResponse, error) {
	var resp ResultResponse
	if err := c.call(ctx, "Result", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel terminates a running job.
func (c *Client) Cancel(ctx context.Context, jobID string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call(ctx, "Cancel", CancelRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to shut down.
func (c *Client) Stop(ctx context.Context) (*StopResponse, error) {
	var resp StopResponse
	if err := c.call(ctx, "Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MissedMarker is the text handed to Encode's onOutput in place of chunks the
// daemon evicted before they were fetched.
func MissedMarker(n uint64) string {
	return fmt.Sprintf("\n[%d chunks dropped]\n", n)
}

// Encode runs req on the daemon to completion, passing each diagnostic chunk
// to onOutput in arrival order. Failures to launch come back as a failed
// Result; the error is reserved for transport problems and ctx ending, in
// which case the daemon is asked to terminate the job.
func (c *Client) Encode(ctx context.Context, req encoding.Request, onOutput func(string)) (encoding.Result, error) {
	started, err := c.StartEncode(ctx, req)
	if err != nil {
		return encoding.Result{}, err
	}
	if started.Result != nil {
		return *started.Result, nil
	}

	jobID := started.JobID
	abandon := func(cause error) (encoding.Result, error) {
		if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
			cancelCtx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			defer cancel()
			_, _ = c.Cancel(cancelCtx, jobID)
		}
		return encoding.Result{}, cause
	}

	var since uint64
	for {
		out, err := c.Output(ctx, OutputRequest{JobID: jobID, Since: since, Wait: true})
		if err != nil {
			return abandon(err)
		}
		if onOutput != nil {
			if out.Missed > 0 {
				onOutput(MissedMarker(out.Missed))
			}
			for _, chunk := range out.Chunks {
				onOutput(chunk.Text)
			}
		}
		since = out.Next
		if out.Done {
			break
		}
	}

	res, err := c.Result(ctx, ResultRequest{JobID: jobID, Wait: true})
	if err != nil {
		return abandon(err)
	}
	return res.Result, nil
}
