package azure

import (
	"fmt"
	"strings"

	"go.bryk.io/queue/errors"
)

// ConnectionSettings carries the pieces extracted from an Azure Storage
// account connection string that are needed to build both the queue and
// blob service clients: the account name, its shared key and the endpoint
// suffix of the cloud environment the account lives in.
type ConnectionSettings struct {
	AccountName    string
	AccountKey     string
	EndpointSuffix string
}

// QueueServiceURL returns the base URL for the account's queue service.
func (c ConnectionSettings) QueueServiceURL() string {
	return fmt.Sprintf("https://%s.queue.%s", c.AccountName, c.EndpointSuffix)
}

// BlobServiceURL returns the base URL for the account's blob service.
func (c ConnectionSettings) BlobServiceURL() string {
	return fmt.Sprintf("https://%s.blob.%s", c.AccountName, c.EndpointSuffix)
}

// ParseConnectionString extracts account name, account key and endpoint
// suffix from a standard Azure Storage account connection string, e.g.:
//
//	DefaultEndpointsProtocol=https;AccountName=example;AccountKey=...;EndpointSuffix=core.windows.net
func ParseConnectionString(connectionString string) (ConnectionSettings, error) {
	getValue := func(pair string) string {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			return parts[1]
		}
		return ""
	}

	var name, key, suffix string
	for _, part := range strings.Split(connectionString, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "AccountName"):
			name = getValue(part)
		case strings.HasPrefix(part, "AccountKey"):
			key = getValue(part)
		case strings.HasPrefix(part, "EndpointSuffix"):
			suffix = getValue(part)
		}
	}

	if name == "" || key == "" {
		return ConnectionSettings{}, errors.New("azure: connection string missing AccountName or AccountKey")
	}
	if suffix == "" {
		suffix = "core.windows.net"
	}

	return ConnectionSettings{AccountName: name, AccountKey: key, EndpointSuffix: suffix}, nil
}

