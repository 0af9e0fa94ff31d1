package rpc

import "context"

// RPCClient performs node-to-node calls inside the cluster.
type RPCClient interface {
	// ForwardRequest replays an HTTP request against the leader node
	// and returns its response.
	ForwardRequest(ctx context.Context, leaderAddr string, req *ForwardedRequest) (*ForwardedResponse, error)
}

// ForwardedRequest is a write request captured on a follower for
// replay against the leader.
type ForwardedRequest struct {
	Method      string
	Path        string
	Body        []byte
	Headers     map[string]string
	QueryParams map[string]string
}

// ForwardedResponse carries the leader's reply back to the original
// client.
type ForwardedResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}
