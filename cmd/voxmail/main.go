// Voxmail is a voice email/calendar assistant backend: it exposes the tool
// catalog over HTTP and MCP, drives the Google OAuth2 flow and bridges
// realtime speech sessions to the dispatcher.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/voxmail/voxmail/internal/auth"
	"github.com/voxmail/voxmail/internal/bridge"
	"github.com/voxmail/voxmail/internal/config"
	"github.com/voxmail/voxmail/internal/contact"
	"github.com/voxmail/voxmail/internal/format"
	"github.com/voxmail/voxmail/internal/gservice"
	"github.com/voxmail/voxmail/internal/logx"
	"github.com/voxmail/voxmail/internal/profile"
	"github.com/voxmail/voxmail/internal/tool"
)

const profileSourceMessages = 1000

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP server listen addr")
	tokenFile := flag.String("oauth-token-file", "./data/voxmail-token.json", "Path to cache the Google OAuth token, empty to avoid storing")
	envFile := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	enableBridge := flag.Bool("bridge", false, "Run a server-side realtime bridge session (requires OPENAI_API_KEY)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(fmt.Errorf("config.Load failed: %w", err))
	}

	closeLogs := setupLogger(cfg, *enableStdio, *logFile)
	defer closeLogs()

	ln := mustListen(*httpAddr)
	oauthCfg := oauthConfig(cfg, ln.Addr().String())

	mgr, err := auth.NewManager(oauthCfg, *tokenFile)
	if err != nil {
		panic(fmt.Errorf("auth.NewManager failed: %w", err))
	}

	defer func() {
		log.Info().Msg("persisting token if present")
		if err := mgr.Persist(); err != nil {
			log.Error().Err(err).Msg("mgr.Persist failed")
		}
	}()

	conv := &format.Converter{}
	mail := gservice.NewMail(oauthCfg, mgr, conv)
	cal := gservice.NewCalendar(oauthCfg, mgr)
	resolver := contact.NewResolver(mgr, mail)
	dispatcher := tool.NewDispatcher(mgr, mail, cal, resolver)

	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(mgr, newProfiler(cfg, mail, conv)))
	mux.Handle("/api/mcp", tool.NewHTTPHandler(dispatcher))

	mcpSrv := tool.NewMCPServer(dispatcher)
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return mcpSrv }, nil))

	if cfg.OpenAIAPIKey != "" {
		mux.HandleFunc("/api/session", sessionHandler(cfg))
	}

	srv := &http.Server{Handler: mux}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if !mgr.Authenticated() {
		openBrowser(oauthCfg.RedirectURL)
	}

	stopHTTP, errHTTPCh := serveHTTP(srv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(mcpSrv)
		defer stopStdio()
	}

	var errBridgeCh <-chan error
	if *enableBridge {
		if cfg.OpenAIAPIKey == "" {
			panic("-bridge requires OPENAI_API_KEY to be set")
		}
		var stopBridge func()
		stopBridge, errBridgeCh = serveBridge(cfg, mgr, ln.Addr().String())
		defer stopBridge()
	}

	select {
	case err := <-errHTTPCh:
		log.Error().Err(err).Msg("http server failed")
	case err := <-errStdioCh:
		log.Error().Err(err).Msg("stdio transport failed")
	case err := <-errBridgeCh:
		log.Error().Err(err).Msg("realtime bridge failed")
	case <-shutdown:
		log.Info().Msg("shutdown signal received")
	}
}

// profiler adapts the sent-mail fetch plus the profile builder to the OAuth
// handler's post-login hook.
type profiler struct {
	mail    *gservice.Mail
	builder *profile.Builder
}

func newProfiler(cfg *config.Config, mail *gservice.Mail, conv *format.Converter) *profiler {
	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		c := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
		client = &c
	}

	return &profiler{
		mail:    mail,
		builder: profile.NewBuilder(client, cfg.ProfileModel, conv),
	}
}

func (p *profiler) BuildProfile(ctx context.Context) (*profile.Profile, error) {
	sent, err := p.mail.ListSent(ctx, profileSourceMessages)
	if err != nil {
		return nil, fmt.Errorf("mail.ListSent failed: %w", err)
	}

	msgs := make([]profile.SentMessage, 0, len(sent))
	for _, s := range sent {
		msgs = append(msgs, profile.SentMessage{
			Subject: s.Subject,
			From:    s.From,
			To:      s.To,
			Body:    s.Body,
		})
	}

	return p.builder.Build(ctx, msgs), nil
}

// sessionHandler mints short-lived realtime credentials for the browser
// client so the API key never leaves the backend.
func sessionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token, err := bridge.MintEphemeralToken(r.Context(), nil, cfg.OpenAIAPIKey, cfg.RealtimeModel, cfg.RealtimeVoice)
		if err != nil {
			log.Error().Err(err).Msg("bridge.MintEphemeralToken failed")
			http.Error(w, "unable to create realtime session", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(token); err != nil {
			log.Error().Err(err).Msg("response encoding failed")
		}
	}
}

// serveBridge dials the realtime API and runs one bridge session forwarding
// function calls into the local dispatch endpoint.
func serveBridge(cfg *config.Config, mgr *auth.Manager, lnAddr string) (func(), <-chan error) {
	errBridgeCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(errBridgeCh)
		log.Info().Str("model", cfg.RealtimeModel).Msg("starting realtime bridge")

		conn, err := bridge.Dial(ctx, cfg.OpenAIAPIKey, cfg.RealtimeModel)
		if err != nil {
			errBridgeCh <- fmt.Errorf("bridge.Dial failed: %w", err)
			return
		}

		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()

		invoker := bridge.NewHTTPInvoker(fmt.Sprintf("http://%s/api/mcp", lnAddr), nil)
		session := bridge.NewSession(conn, invoker, cfg.RealtimeVoice, mgr.Profile())

		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errBridgeCh <- fmt.Errorf("session.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errBridgeCh
		log.Info().Msg("realtime bridge stopped")
	}, errBridgeCh
}

func serveStdio(srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Info().Msg("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Info().Msg("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.Info().Str("addr", ln.Addr().String()).Msg("starting http server")

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			log.Error().Err(err).Msg("http server stopped")
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("srv.Shutdown failed")
		}

		<-errHTTPCh
		log.Info().Msg("http server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr string) net.Listener {
	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func oauthConfig(cfg *config.Config, lnAddr string) *oauth2.Config {
	redirectURL := cfg.OAuthRedirectURL
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("http://%s/oauth", lnAddr)
	}

	return &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailSendScope,
			gmail.GmailModifyScope,
			calendar.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}
}

func setupLogger(cfg *config.Config, enableStdio bool, logFile string) func() {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		logx.Init(cfg.LogDebug, false, f)

		return func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "log file close failed:", err)
			}
		}
	}

	if enableStdio {
		// stdout carries the MCP protocol, logs must stay off it.
		logx.Init(cfg.LogDebug, false, io.Discard)
	} else {
		logx.Init(cfg.LogDebug, cfg.LogPretty, os.Stdout)
	}

	return func() {}
}

func openBrowser(url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = errors.New("unsupported platform")
	}

	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not open browser automatically, please open the link manually")
	}
}
