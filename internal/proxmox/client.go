package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiBase             = "/api2/json"
	defaultPollInterval = 2 * time.Second
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Address is the API endpoint, e.g. "https://pve.example.com:8006".
	Address string
	// TokenID is the API token identifier, "user@realm!tokenname".
	TokenID string
	// TokenSecret is the API token secret value.
	TokenSecret string
	// InsecureSkipVerify disables TLS certificate verification, for
	// clusters running self-signed certificates.
	InsecureSkipVerify bool
	// PollInterval is the delay between task status polls; zero means
	// two seconds.
	PollInterval time.Duration
}

// Client talks to the Proxmox VE HTTP API using API token authentication.
type Client struct {
	baseURL      string
	authHeader   string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClient builds a Client from options.
func NewClient(opts ClientOptions) (*Client, error) {
	address := strings.TrimRight(opts.Address, "/")
	if address == "" {
		return nil, fmt.Errorf("proxmox address is required")
	}
	if opts.TokenID == "" || opts.TokenSecret == "" {
		return nil, fmt.Errorf("proxmox API token is required")
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	transport := http.DefaultTransport
	if opts.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:      address + apiBase,
		authHeader:   fmt.Sprintf("PVEAPIToken=%s=%s", opts.TokenID, opts.TokenSecret),
		httpClient:   &http.Client{Transport: transport},
		pollInterval: pollInterval,
	}, nil
}

type guestResource struct {
	VMID     int    `json:"vmid"`
	Node     string `json:"node"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Tags     string `json:"tags"`
	Template int    `json:"template"`
}

// ListGuests returns every VM and container in the cluster inventory.
func (c *Client) ListGuests(ctx context.Context) ([]GuestRef, error) {
	var resources []guestResource
	if err := c.get(ctx, "/cluster/resources?type=vm", &resources); err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}

	guests := make([]GuestRef, 0, len(resources))
	for _, res := range resources {
		kind := GuestKind(res.Type)
		if kind != GuestVM && kind != GuestContainer {
			continue
		}
		guests = append(guests, GuestRef{
			ID:       res.VMID,
			Node:     res.Node,
			Kind:     kind,
			Name:     res.Name,
			Tags:     splitTags(res.Tags),
			Template: res.Template == 1,
		})
	}
	return guests, nil
}

type snapshotEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapTime    int64  `json:"snaptime"`
}

// ListSnapshots returns the existing snapshots of one guest. The "current"
// pseudo-entry Proxmox appends for the live state is filtered out.
func (c *Client) ListSnapshots(ctx context.Context, guest GuestRef) ([]SnapshotInfo, error) {
	var entries []snapshotEntry
	if err := c.get(ctx, c.guestPath(guest)+"/snapshot", &entries); err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", guest, err)
	}

	snapshots := make([]SnapshotInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "current" {
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{
			Name:        entry.Name,
			Description: entry.Description,
			CreatedAt:   time.Unix(entry.SnapTime, 0).UTC(),
		})
	}
	return snapshots, nil
}

// CreateSnapshot starts snapshot creation and returns the task reference.
func (c *Client) CreateSnapshot(ctx context.Context, guest GuestRef, name, description string) (TaskRef, error) {
	form := url.Values{}
	form.Set("snapname", name)
	if description != "" {
		form.Set("description", description)
	}

	var upid string
	if err := c.post(ctx, c.guestPath(guest)+"/snapshot", form, &upid); err != nil {
		return TaskRef{}, fmt.Errorf("create snapshot %q on %s: %w", name, guest, err)
	}
	return TaskRef{Node: guest.Node, UPID: upid}, nil
}

// DeleteSnapshot starts snapshot removal and returns the task reference.
func (c *Client) DeleteSnapshot(ctx context.Context, guest GuestRef, name string) (TaskRef, error) {
	var upid string
	if err := c.delete(ctx, c.guestPath(guest)+"/snapshot/"+url.PathEscape(name), &upid); err != nil {
		return TaskRef{}, fmt.Errorf("delete snapshot %q on %s: %w", name, guest, err)
	}
	return TaskRef{Node: guest.Node, UPID: upid}, nil
}

type taskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus"`
}

// WaitTask polls a task until it leaves the running state. A non-OK exit
// status is returned as a *TaskError; a context deadline surfaces as the
// context error.
func (c *Client) WaitTask(ctx context.Context, task TaskRef) error {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", url.PathEscape(task.Node), url.PathEscape(task.UPID))

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status taskStatus
		if err := c.get(ctx, path, &status); err != nil {
			return fmt.Errorf("poll task %s: %w", task.UPID, err)
		}
		if status.Status != "running" {
			if status.ExitStatus != "OK" {
				return &TaskError{UPID: task.UPID, ExitStatus: status.ExitStatus}
			}
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) guestPath(guest GuestRef) string {
	return fmt.Sprintf("/nodes/%s/%s/%d", url.PathEscape(guest.Node), guest.Kind, guest.ID)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) (err error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, resp.Body.Close())
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, strings.TrimSpace(httpStatusLine(resp.StatusCode, payload)))
	}
	if out == nil {
		return nil
	}

	// Every Proxmox response wraps its payload in a "data" field.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func httpStatusLine(code int, payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return strconv.Itoa(code) + " " + http.StatusText(code)
	}
	return strconv.Itoa(code) + " " + http.StatusText(code) + ": " + text
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	// Proxmox separates tags with semicolons; older setups used commas.
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})
	tags := make([]string, 0, len(fields))
	for _, field := range fields {
		if tag := strings.TrimSpace(field); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
