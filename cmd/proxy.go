package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/style"
)

func init() {
	rootCmd.AddCommand(proxyCmd)
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run or use the fetch proxy adapters send their requests through",
}

func init() {
	proxyCmd.AddCommand(proxyServeCmd)

	proxyServeCmd.Flags().StringP("addr", "a", "", "Listen address")
	lo.Must0(viper.BindPFlag(key.ProxyAddr, proxyServeCmd.Flags().Lookup("addr")))

	proxyServeCmd.Flags().Bool("fingerprint", false, "Mimic a browser TLS handshake upstream")
	lo.Must0(viper.BindPFlag(key.ProxyTLSFingerprint, proxyServeCmd.Flags().Lookup("fingerprint")))
}

// proxyServeCmd serves the proxy over HTTP until interrupted.
var proxyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fetch proxy over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		addr := viper.GetString(key.ProxyAddr)

		mux := http.NewServeMux()
		mux.Handle(strings.TrimSuffix(constant.ProxyMarker, "?"), proxy.NewHandler(
			config.Seconds(key.ProxyTimeout),
			viper.GetBool(key.ProxyTLSFingerprint),
		))

		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		fmt.Printf("%s serving %s on %s\n", icon.Get(icon.Link), constant.ProxyMarker, style.Fg(color.Yellow)("http://"+addr))
		log.Infof("proxy: listening on %s", addr)

		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			handleErr(err)
		}
	},
}

func init() {
	proxyCmd.AddCommand(proxyURLCmd)
	proxyURLCmd.Flags().StringToStringP("header", "H", map[string]string{}, "Header to forward, e.g. Referer=https://example.com")
}

// proxyURLCmd prints the proxied form of a URL.
var proxyURLCmd = &cobra.Command{
	Use:   "url <target>",
	Short: "Print the proxied form of a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headers := lo.Must(cmd.Flags().GetStringToString("header"))
		fmt.Println(viper.GetString(key.ProxyBaseURL) + proxy.Add(args[0], headers))
	},
}
