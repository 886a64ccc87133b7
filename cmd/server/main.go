package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/onboardhq/hr-assistant/assistant"
	"github.com/onboardhq/hr-assistant/authflow"
	"github.com/onboardhq/hr-assistant/authflow/flowrepo"
	"github.com/onboardhq/hr-assistant/internal/config"
	"github.com/onboardhq/hr-assistant/knowledge"
	"github.com/onboardhq/hr-assistant/msgraph"
	"github.com/onboardhq/hr-assistant/msgraph/tokencache"
	"github.com/onboardhq/hr-assistant/server"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := tokencache.New()
	store := tokencache.NewFileStore(c.GetTokenCacheFile())
	store.Load(cache)

	broker, err := msgraph.New(ctx, msgraph.Options{
		ClientID:  c.GetGraphClientID(),
		Authority: c.GetGraphAuthority(),
		Scopes:    c.GetGraphScopes(),
		Timeout:   c.GetProviderTimeout(),
		Cache:     cache,
		Store:     store,
	})
	if err != nil {
		return fmt.Errorf("msgraph.New: %w", err)
	}

	flows := authflow.NewService(broker, flowrepo.NewInMemoryRepo())
	go flows.RunSweeper(ctx, c.GetFlowSweepInterval())

	graph := msgraph.NewClient(broker)

	search := knowledge.NewSearchClient(
		c.GetSearchEndpoint(), c.GetSearchAPIKey(),
		c.GetSearchIndexName(), c.GetSearchAPIVersion(),
	)
	ingestor := knowledge.NewIngestor(search)

	var agent assistant.Assistant
	if c.GetOpenAIEndpoint() != "" && c.GetOpenAIAPIKey() != "" {
		agent, err = assistant.NewAgent(
			c.GetOpenAIEndpoint(), c.GetOpenAIAPIKey(),
			c.GetOpenAIDeployment(), c.GetOpenAIAPIVersion(),
			search, graph,
		)
		if err != nil {
			return fmt.Errorf("assistant.NewAgent: %w", err)
		}
	} else {
		log.Printf("Azure OpenAI not configured, chat endpoint disabled\n")
	}

	httpServer := &http.Server{
		Addr:    c.GetPort(),
		Handler: server.New(c, broker, flows, graph, agent, ingestor),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()

	returnError = shutdown(httpServer)
	if err := store.Save(cache); err != nil {
		log.Printf("Failed to flush token cache: %v\n", err)
	}
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func configureLogging(env string) {
	if env == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
