package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"manga-merger/cmd/manga-merger/utils"
)

// main is the entry point of the application
func main() {
	appConfig, err := utils.LoadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := utils.SetupLogFile(appConfig.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	ctx, err := NewAppContext(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	st := ctx.Settings.Get()
	utils.LogMessage("INFO", fmt.Sprintf("Starting with configuration: main_path=%s export_path=%s sort_mode=%s",
		st.MainPath, st.ExportPath, st.SortMode))

	r := mux.NewRouter()
	RegisterRoutes(r, ctx)

	port := ctx.ListenPort()
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	utils.LogMessage("INFO", fmt.Sprintf("Starting server on port %s", port))
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
