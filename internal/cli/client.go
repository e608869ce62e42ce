package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RuleResponse — правило из API.
type RuleResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	IsActive      bool           `json:"is_active"`
	Trigger       map[string]any `json:"trigger"`
	Conditions    []any          `json:"conditions,omitempty"`
	Notification  map[string]any `json:"notification"`
	TriggerCount  int64          `json:"trigger_count"`
	LastTriggered string         `json:"last_triggered,omitempty"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// EventResponse — событие из API.
type EventResponse struct {
	ID                   string         `json:"id"`
	Type                 string         `json:"type"`
	Event                string         `json:"event"`
	Source               string         `json:"source"`
	Payload              map[string]any `json:"payload,omitempty"`
	Status               string         `json:"status"`
	UserID               string         `json:"user_id,omitempty"`
	EntityType           string         `json:"entity_type,omitempty"`
	EntityID             string         `json:"entity_id,omitempty"`
	RulesTriggered       int            `json:"rules_triggered"`
	NotificationsCreated int            `json:"notifications_created"`
	ProcessingError      string         `json:"processing_error,omitempty"`
	OccurredAt           string         `json:"occurred_at"`
	ProcessedAt          string         `json:"processed_at,omitempty"`
}

// ExecutionResponse — запись исполнения из API.
type ExecutionResponse struct {
	ID              string `json:"id"`
	EventID         string `json:"event_id"`
	RuleID          string `json:"rule_id"`
	NotificationID  string `json:"notification_id,omitempty"`
	Status          string `json:"status"`
	Result          string `json:"result"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	ExecutedAt      string `json:"executed_at"`
}

// NotificationResponse — уведомление из API.
type NotificationResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
	Type          string   `json:"type"`
	Category      string   `json:"category,omitempty"`
	Priority      string   `json:"priority"`
	RecipientType string   `json:"recipient_type"`
	RecipientIDs  []string `json:"recipient_ids,omitempty"`
	ActionURL     string   `json:"action_url,omitempty"`
	ActionLabel   string   `json:"action_label,omitempty"`
	Source        string   `json:"source"`
	RuleID        string   `json:"rule_id"`
	EventID       string   `json:"event_id"`
	Persistent    bool     `json:"persistent"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// TestRuleResponse — результат dry-run проверки из API.
type TestRuleResponse struct {
	TriggerMatched   bool                  `json:"trigger_matched"`
	ConditionsPassed bool                  `json:"conditions_passed"`
	ConditionResults []map[string]any      `json:"condition_results,omitempty"`
	Notification     *NotificationResponse `json:"notification,omitempty"`
	RenderWarnings   []string              `json:"render_warnings,omitempty"`
	RenderError      string                `json:"render_error,omitempty"`
}

// StatsResponse — сводная статистика из API.
type StatsResponse struct {
	Events     map[string]int64 `json:"events"`
	Executions struct {
		Total     int64            `json:"total"`
		ByStatus  map[string]int64 `json:"by_status"`
		ByResult  map[string]int64 `json:"by_result"`
		AvgTimeMs float64          `json:"avg_time_ms"`
	} `json:"executions"`
}

// --- Request types ---

// IngestEventRequest — отправка события.
type IngestEventRequest struct {
	Type       string         `json:"type"`
	Event      string         `json:"event"`
	Source     string         `json:"source"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
}

// ListRulesOpts — параметры фильтрации правил.
type ListRulesOpts struct {
	IsActive    *bool
	TriggerType string
	Limit       int
}

// ListEventsOpts — параметры фильтрации событий.
type ListEventsOpts struct {
	Status string
	Type   string
	Source string
	Limit  int
}

// ListExecutionsOpts — параметры фильтрации записей исполнения.
type ListExecutionsOpts struct {
	RuleID string
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Notiflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Rules ---

// ListRules возвращает правила с фильтрацией.
func (c *Client) ListRules(opts ListRulesOpts) ([]RuleResponse, error) {
	params := url.Values{}
	if opts.IsActive != nil {
		params.Set("is_active", fmt.Sprintf("%t", *opts.IsActive))
	}
	if opts.TriggerType != "" {
		params.Set("trigger_type", opts.TriggerType)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var rules []RuleResponse
	err := c.list("/api/v1/rules", params, &rules)
	return rules, err
}

// CreateRule создаёт правило из JSON-описания.
func (c *Client) CreateRule(spec json.RawMessage) (*RuleResponse, error) {
	var rule RuleResponse
	err := c.post("/api/v1/rules", spec, &rule)
	return &rule, err
}

// GetRule возвращает правило по ID.
func (c *Client) GetRule(id string) (*RuleResponse, error) {
	var rule RuleResponse
	err := c.get("/api/v1/rules/"+id, &rule)
	return &rule, err
}

// UpdateRule обновляет правило JSON-описанием.
func (c *Client) UpdateRule(id string, spec json.RawMessage) (*RuleResponse, error) {
	var rule RuleResponse
	err := c.put("/api/v1/rules/"+id, spec, &rule)
	return &rule, err
}

// DeleteRule удаляет правило.
func (c *Client) DeleteRule(id string) error {
	return c.delete("/api/v1/rules/" + id)
}

// EnableRule включает правило.
func (c *Client) EnableRule(id string) (*RuleResponse, error) {
	var rule RuleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/rules/"+id+"/enabled", body, &rule)
	return &rule, err
}

// DisableRule выключает правило.
func (c *Client) DisableRule(id string) (*RuleResponse, error) {
	var rule RuleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/rules/"+id+"/enabled", body, &rule)
	return &rule, err
}

// TestRule выполняет dry-run проверку правила на тестовом событии.
func (c *Client) TestRule(id string, sample json.RawMessage) (*TestRuleResponse, error) {
	var result TestRuleResponse
	err := c.post("/api/v1/rules/"+id+"/test", sample, &result)
	return &result, err
}

// --- Events ---

// SendEvent отправляет событие в обработку.
func (c *Client) SendEvent(req IngestEventRequest) (*EventResponse, error) {
	var event EventResponse
	err := c.post("/api/v1/events", req, &event)
	return &event, err
}

// ListEvents возвращает события с фильтрацией.
func (c *Client) ListEvents(opts ListEventsOpts) ([]EventResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Type != "" {
		params.Set("type", opts.Type)
	}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var events []EventResponse
	err := c.list("/api/v1/events", params, &events)
	return events, err
}

// GetEvent возвращает событие по ID.
func (c *Client) GetEvent(id string) (*EventResponse, error) {
	var event EventResponse
	err := c.get("/api/v1/events/"+id, &event)
	return &event, err
}

// ListEventExecutions возвращает записи исполнения по событию.
func (c *Client) ListEventExecutions(eventID string) ([]ExecutionResponse, error) {
	var execs []ExecutionResponse
	err := c.list("/api/v1/events/"+eventID+"/executions", nil, &execs)
	return execs, err
}

// ReprocessEvent возвращает FAILED событие в обработку.
func (c *Client) ReprocessEvent(id string) (*EventResponse, error) {
	var event EventResponse
	err := c.post("/api/v1/events/"+id+"/reprocess", nil, &event)
	return &event, err
}

// --- Executions ---

// ListExecutions возвращает записи исполнения с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.RuleID != "" {
		params.Set("rule_id", opts.RuleID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/executions", params, &execs)
	return execs, err
}

// GetExecution возвращает запись исполнения по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// --- Notifications ---

// ListNotifications возвращает уведомления получателя.
func (c *Client) ListNotifications(recipientID string, limit int) ([]NotificationResponse, error) {
	params := url.Values{}
	params.Set("recipient_id", recipientID)
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var items []NotificationResponse
	err := c.list("/api/v1/notifications", params, &items)
	return items, err
}

// GetNotification возвращает уведомление по ID.
func (c *Client) GetNotification(id string) (*NotificationResponse, error) {
	var n NotificationResponse
	err := c.get("/api/v1/notifications/"+id, &n)
	return &n, err
}

// --- Stats ---

// GetStats возвращает сводную статистику.
func (c *Client) GetStats() (*StatsResponse, error) {
	var stats StatsResponse
	err := c.get("/api/v1/stats", &stats)
	return &stats, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
