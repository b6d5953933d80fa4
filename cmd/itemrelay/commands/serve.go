package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveMCP  string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config http.addr)")
	serveCmd.Flags().StringVar(&serveMCP, "mcp", "", "MCP transport: stdio, http (mounted at /mcp) or empty")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API and, optionally, the MCP tools.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, cfg, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		srv := mcp.NewServer(&mcp.Implementation{Name: "itemrelay", Version: "1.0.0"}, nil)
		r.RegisterMCP(srv)

		if serveMCP == "stdio" {
			logger.Info("itemrelay: MCP on stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		}

		router := chi.NewRouter()
		if serveMCP == "http" {
			router.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
		}
		router.Mount("/", r.Handler())

		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		hs := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			hs.Shutdown(shutdown)
		}()

		logger.Info("itemrelay: listening", "addr", addr, "mcp", serveMCP)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
