package adapter

import "context"

// TransformResult carries the produced artifact. Adapters that get a result
// URL from their provider download it themselves so the orchestrator always
// receives bytes ready for durable upload.
type TransformResult struct {
	Data        []byte
	ContentType string
	ProviderRef string // provider-side URL or request id, for logs only
}

// TransformAdapter is the port for the external image-editing service.
//
// The instruction is the final prompt text: the orchestrator has already
// mapped the `background` keyword to the fixed removal directive and passes
// free-text object descriptions through verbatim.
//
// Failures must be classified into domain.ErrTransformTimeout,
// domain.ErrTransformRejected or domain.ErrTransformUnavailable (wrapped is
// fine). Adapters do not retry; retry policy lives in the retry wrapper.
type TransformAdapter interface {
	Name() string
	Transform(ctx context.Context, imageURL, instruction string) (*TransformResult, error)
}
