package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/chatrag/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

func (c Client) conversationURL(id string, segments ...string) (string, error) {
	return jsonapi.URL(c.baseURL).Path(append([]string{"conversations", id}, segments...)...).String()
}

func (c Client) DocumentsPost(ctx context.Context, conversation string, req models.DocumentsPostRequest) (resp models.DocumentsPostResponse, err error) {
	url, err := c.conversationURL(conversation, "documents")
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.DocumentsPostRequest, models.DocumentsPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) DocumentsGet(ctx context.Context, conversation string) (resp models.DocumentsGetResponse, err error) {
	url, err := c.conversationURL(conversation, "documents")
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, url, &resp)
	return resp, err
}

// DocumentDelete removes the document at the given position.
func (c Client) DocumentDelete(ctx context.Context, conversation string, index int) (err error) {
	url, err := c.conversationURL(conversation, "documents", strconv.Itoa(index))
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, url, nil)
}

// DocumentsDelete removes every document from the conversation.
func (c Client) DocumentsDelete(ctx context.Context, conversation string) (err error) {
	url, err := c.conversationURL(conversation, "documents")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, url, nil)
}

func (c Client) ContextPost(ctx context.Context, conversation string, req models.ContextPostRequest) (resp models.ContextPostResponse, err error) {
	url, err := c.conversationURL(conversation, "context")
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.ContextPostRequest, models.ContextPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

// ChatPost sends a message to the conversation, calling f with each chunk of
// the reply. The names of the documents used as context are returned once the
// reply is complete.
func (c Client) ChatPost(ctx context.Context, conversation string, request models.ChatPostRequest, f func(ctx context.Context, chunk []byte) error) (sources []string, err error) {
	url, err := c.conversationURL(conversation, "chat")
	if err != nil {
		return nil, err
	}
	h, err := c.postStream(ctx, url, request, f)
	if err != nil {
		return nil, err
	}
	return h.Values("X-Context-Source"), nil
}

func (c Client) QueryPost(ctx context.Context, conversation string, request models.QueryPostRequest, f func(ctx context.Context, chunk []byte) error) (err error) {
	url, err := c.conversationURL(conversation, "query")
	if err != nil {
		return err
	}
	_, err = c.postStream(ctx, url, request, f)
	return err
}

func (c Client) HistoryGet(ctx context.Context, conversation string) (resp models.HistoryGetResponse, err error) {
	url, err := c.conversationURL(conversation, "history")
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, url, &resp)
	return resp, err
}

// ConversationDelete removes the conversation's history and documents.
func (c Client) ConversationDelete(ctx context.Context, conversation string) (err error) {
	url, err := c.conversationURL(conversation)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, url, nil)
}

func (c Client) ProvidersGet(ctx context.Context) (resp models.ProvidersGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("providers").String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, url, &resp)
	return resp, err
}

func (c Client) ProviderGet(ctx context.Context, id string) (resp models.ProvidersGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("providers", id).String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, url, &resp)
	return resp, err
}

func (c Client) HealthGet(ctx context.Context) (resp models.HealthGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("health").String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, url, &resp)
	return resp, err
}

func (c Client) do(ctx context.Context, method, url string, resp any) (err error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if resp == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c Client) postStream(ctx context.Context, url string, req any, f func(ctx context.Context, chunk []byte) error) (h http.Header, err error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return nil, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	for {
		chunk := make([]byte, 1024)
		n, err := res.Body.Read(chunk)
		if n > 0 {
			if err := f(ctx, chunk[:n]); err != nil {
				return nil, fmt.Errorf("failed to process chunk: %w", err)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
	}
	return res.Header, nil
}
