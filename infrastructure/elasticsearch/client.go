// Package elasticsearch builds a verified go-elasticsearch client.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/retry"
)

// NewClient creates a client and pings it with backoff until it answers or
// the retry budget runs out.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	url := normalizeURL(cfg.URL)

	clientConfig := es.Config{
		Addresses:  []string{url},
		Transport:  createTransport(cfg.InsecureSkipVerify),
		MaxRetries: cfg.MaxRetries,
	}
	switch {
	case cfg.APIKey != "":
		clientConfig.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	err = retry.Retry(ctx, *cfg.RetryConfig, func() error {
		return Ping(ctx, client, cfg.PingTimeout)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))
	return client, nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func createTransport(insecure bool) *http.Transport {
	transport := &http.Transport{}
	if insecure {
		//nolint:gosec // opt-in for self-signed development clusters
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}

// Ping checks the cluster once. Used by NewClient and the /health check.
func Ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), body)
	}
	return nil
}
