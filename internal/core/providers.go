package core

import "context"

// ChatTurn is the turn-level entry point transports depend on.
type ChatTurn interface {
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ModelStatus exposes the lazily loaded model's readiness without loading it.
type ModelStatus interface {
	IsReady() bool
}
