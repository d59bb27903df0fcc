package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteConfig holds information for registering a route
type RouteConfig struct {
	Path    string
	Handler http.HandlerFunc
	Methods []string
}

// RegisterRoutes registers all application routes with the router
func RegisterRoutes(r *mux.Router, ctx *AppContext) {
	h := ctx.MergeHandler
	routes := []RouteConfig{
		{"/", h.IndexHandler, []string{"GET"}},
		{"/about", h.AboutHandler, []string{"GET"}},
		{"/settings", h.SettingsHandler, []string{"GET", "POST"}},

		// Library browsing
		{"/api/tree", h.TreeHandler, []string{"GET"}},
		{"/api/folders", h.FoldersHandler, []string{"GET"}},
		{"/api/folder", h.FolderHandler, []string{"GET"}},
		{"/api/chapter", h.ChapterHandler, []string{"GET"}},

		// Merging
		{"/api/combine", h.CombineHandler, []string{"POST"}},
		{"/api/session", h.SessionHandler, []string{"GET"}},
		{"/api/processes", h.ProcessesAPIHandler, []string{"GET"}},
		{"/api/processes/{id}/delete", h.ProcessDeleteHandler, []string{"POST"}},

		// History
		{"/history", h.HistoryHandler, []string{"GET"}},
		{"/api/history/view", h.HistoryViewHandler, []string{"POST"}},
		{"/api/history/delete", h.HistoryDeleteHandler, []string{"POST"}},
	}

	for _, route := range routes {
		r.HandleFunc(route.Path, route.Handler).Methods(route.Methods...)
	}

	staticHandler := http.StripPrefix("/static/", http.FileServer(http.Dir("static")))
	r.PathPrefix("/static/").Handler(staticHandler)
}
