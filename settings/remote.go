package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RemoteStore keeps the list in the host settings endpoint:
//
//	GET {base}/api/settings/{key}  -> {"setting_key": key, "setting_value": {"sources": [...]}}
//	PUT {base}/api/settings/{key}  <- {"setting_value": {"sources": [...]}}
//
// Writes carry a bearer token.
type RemoteStore struct {
	base   string
	key    string
	client *http.Client
	token  func() (string, error)
}

// NewRemoteStore returns a RemoteStore for the setting key at base.
func NewRemoteStore(base, key string, client *http.Client, token func() (string, error)) *RemoteStore {
	return &RemoteStore{
		base:   strings.TrimRight(base, "/"),
		key:    key,
		client: client,
		token:  token,
	}
}

type settingValue struct {
	Sources []ExternalSource `json:"sources"`
}

type settingEnvelope struct {
	Key   string          `json:"setting_key,omitempty"`
	Value json.RawMessage `json:"setting_value"`
}

func (r *RemoteStore) Name() string {
	return "remote"
}

func (r *RemoteStore) endpoint() string {
	return r.base + "/api/settings/" + url.PathEscape(r.key)
}

func (r *RemoteStore) Load(ctx context.Context) ([]ExternalSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []ExternalSource{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", r.endpoint(), resp.StatusCode)
	}

	var envelope settingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}

	return decodeValue(envelope.Value)
}

// decodeValue accepts the value as an object or as a JSON document inside a string.
func decodeValue(raw json.RawMessage) ([]ExternalSource, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []ExternalSource{}, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		raw = json.RawMessage(inner)
	}

	var value settingValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode setting value: %w", err)
	}

	if value.Sources == nil {
		value.Sources = []ExternalSource{}
	}
	return value.Sources, nil
}

func (r *RemoteStore) Save(ctx context.Context, sources []ExternalSource) error {
	token, err := r.token()
	if err != nil {
		return err
	}

	value, err := json.Marshal(settingValue{Sources: sources})
	if err != nil {
		return err
	}

	body, err := json.Marshal(settingEnvelope{Value: value})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.endpoint(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("PUT %s: status %d", r.endpoint(), resp.StatusCode)
	}

	return nil
}
