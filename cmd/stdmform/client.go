package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gltn/stdm/pkg/audit"
	"github.com/gltn/stdm/pkg/formdef"
	"github.com/gltn/stdm/pkg/formserver"
)

const (
	apiPrefix   = "/api/forms/v1"
	auditPrefix = "/api/audit/v1"
)

// do performs a request and decodes the JSON response into out. Rejected
// submissions (422) are decoded too, since their body lists what was wrong.
func (c *formClient) do(method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "method", method, "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("connecting to form server at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return resp.StatusCode, fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return resp.StatusCode, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *formClient) listForms() ([]formserver.FormSummary, error) {
	var resp struct {
		Forms []formserver.FormSummary `json:"forms"`
	}
	_, err := c.do(http.MethodGet, apiPrefix+"/forms", nil, &resp)
	return resp.Forms, err
}

func (c *formClient) getForm(name string) (*formdef.Definition, error) {
	var d formdef.Definition
	if _, err := c.do(http.MethodGet, apiPrefix+"/forms/"+url.PathEscape(name), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *formClient) getRecord(form, id string) (map[string]any, error) {
	var rec map[string]any
	_, err := c.do(http.MethodGet, recordPath(form, id), nil, &rec)
	return rec, err
}

func (c *formClient) submit(method, path string, req formserver.SubmitRequest) (*formserver.SubmitResponse, error) {
	var resp formserver.SubmitResponse
	if _, err := c.do(method, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *formClient) listEvents(form, outcome string, limit int) ([]audit.Event, error) {
	q := url.Values{}
	if form != "" {
		q.Set("form", form)
	}
	if outcome != "" {
		q.Set("outcome", outcome)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := auditPrefix + "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Events []audit.Event `json:"events"`
	}
	_, err := c.do(http.MethodGet, path, nil, &resp)
	return resp.Events, err
}

func recordPath(form, id string) string {
	p := apiPrefix + "/forms/" + url.PathEscape(form) + "/records"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func validatePath(form string) string {
	return apiPrefix + "/forms/" + url.PathEscape(form) + "/validate"
}
