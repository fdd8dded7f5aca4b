package server

import (
	"net/http"

	"docchat/internal/gateway/handler"
	"docchat/internal/gateway/middleware"
)

func NewMux(svc *handler.Service, metrics http.Handler, trustProxy bool) http.Handler {
	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc(handler.RouteChat, svc.HandleChat)
	mux.HandleFunc(handler.RouteChatWS, svc.HandleChatWS)
	mux.HandleFunc(handler.RouteExtract, svc.HandleExtract)

	// Ops
	mux.HandleFunc(handler.RouteHealth, svc.HandleHealthz)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	// Middleware
	return middleware.CORS(middleware.ClientIdentity(trustProxy)(mux))
}
