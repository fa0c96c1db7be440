package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/studysync/internal/client"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and starts the interactive shell.
func main() {
	var (
		baseURL     string
		caFile      string
		sessionPath string
		showVer     bool
	)

	defaultURL := os.Getenv("STUDYSYNC_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	flag.StringVar(&baseURL, "url", defaultURL, "server base URL (env STUDYSYNC_URL)")
	flag.StringVar(&caFile, "ca", "", "path to an extra CA cert to trust")
	flag.StringVar(&sessionPath, "session", client.DefaultSessionPath(), "path to the session file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("StudySync Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	session, err := client.LoadSession(sessionPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if u := session.CurrentUser(); u != nil {
		fmt.Printf("Signed in as %s. Type 'help' for commands.\n", u.Email)
	} else {
		fmt.Println("Not signed in. Type 'signup' or 'login', or 'help' for commands.")
	}

	api := client.New(baseURL, httpClient, session)
	client.NewShell(api, session, os.Stdin, os.Stdout).Run(ctx)
}
