// Package searchstore abstracts the remote file-search service used to index
// and query documents. Production deployments use the Gemini File Search API;
// tests substitute in-memory fakes.
package searchstore

import "context"

// RemoteStore identifies a created file search store on the remote service.
type RemoteStore struct {
	// Name is the opaque handle assigned by the service
	// (e.g. "fileSearchStores/abc123"). All later calls address the store
	// through it.
	Name string
}

// Operation is the result of an upload. The remote service indexes files
// asynchronously; Done reports whether indexing finished within the client's
// bounded wait.
type Operation struct {
	Done bool
	// Name is the operation's resource name, recorded locally as the
	// document's remote file identifier. May be empty.
	Name string
}

// UploadRequest describes one file upload into a store.
type UploadRequest struct {
	FilePath    string
	StoreName   string
	DisplayName string
}

// QueryRequest is one retrieval-augmented question against a store.
type QueryRequest struct {
	Question     string
	StoreName    string
	SystemPrompt string
	Temperature  *float32
}

// Client is the remote search store contract. Implementations must be safe
// for concurrent use. Callers treat Upload as a single blocking call: it
// either returns an operation or an error, and callers never inspect error
// subtypes.
type Client interface {
	CreateStore(ctx context.Context, displayName string) (RemoteStore, error)
	Upload(ctx context.Context, req UploadRequest) (Operation, error)
	Query(ctx context.Context, req QueryRequest) (string, error)
}
