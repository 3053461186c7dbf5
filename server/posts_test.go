package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoo/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPosts_ProxiesAndClampsLimit(t *testing.T) {
	var sawLimit string
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			sawLimit = r.URL.Query().Get("limit")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"items":[{"id":1,"title":"첫 글"}],"count":1,"hasNext":false}}`)
		},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts?limit=999", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "50", sawLimit, "oversized limits must be clamped before hitting the backend")

	var body struct {
		Data models.PostPage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data.Posts, 1)
	assert.Equal(t, int64(1), body.Data.Posts[0].ID)
	assert.Equal(t, "첫 글", body.Data.Posts[0].Title)
	assert.False(t, body.Data.HasNext)
}

func TestFeedCacheKey_ClampsLimit(t *testing.T) {
	// Equivalent backend pages must share one cache entry.
	assert.Equal(t, feedCacheKey("", 50), feedCacheKey("", 999))
	assert.Equal(t, feedCacheKey("", 10), feedCacheKey("", 0))
	assert.Equal(t, feedCacheKey("", 10), feedCacheKey("", -3))
	assert.NotEqual(t, feedCacheKey("", 10), feedCacheKey("", 17))
	assert.NotEqual(t, feedCacheKey("abc", 10), feedCacheKey("", 10))
}

func TestGetPost_InvalidID(t *testing.T) {
	app, _ := newTestApp(t, testDeps{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/abc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetPost_NullPayloadBecomesNotFound(t *testing.T) {
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":null}`)
		},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeErrorBody(t, resp).Code)
}

func TestGetPost_RelaysUpstreamStatus(t *testing.T) {
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"게시글을 찾을 수 없습니다."}`)
		},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body := decodeErrorBody(t, resp)
	assert.Equal(t, models.CodeUpstream, body.Code)
	assert.Equal(t, "게시글을 찾을 수 없습니다.", body.Error)
}

func TestGetPostView_AggregatesPostAndComments(t *testing.T) {
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/posts/7":
				fmt.Fprint(w, `{"data":{"id":7,"title":"오늘의 일기","content":"내용"}}`)
			case "/api/posts/7/comments":
				fmt.Fprint(w, `{"data":{"items":[
					{"id":1,"content":"응원해요","isDeleted":false},
					{"id":2,"content":"원본","isDeleted":true}
				],"count":2,"hasNext":false}}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"not found"}`)
			}
		},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/views/post/7", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data PostView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Data.Post)
	assert.Equal(t, int64(7), body.Data.Post.ID)
	require.NotNil(t, body.Data.Comments)
	require.Len(t, body.Data.Comments.Comments, 2)
	assert.Equal(t, "응원해요", body.Data.Comments.Comments[0].Content)
	assert.Equal(t, models.DeletedCommentPlaceholder, body.Data.Comments.Comments[1].Content,
		"soft-deleted comments must be rewritten before leaving the gateway")
}

func TestGetPostView_DegradesWhenCommentsFail(t *testing.T) {
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/posts/7":
				fmt.Fprint(w, `{"data":{"id":7,"title":"오늘의 일기","content":"내용"}}`)
			default:
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":"boom"}`)
			}
		},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/views/post/7", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "a comment outage must not take down the post page")

	var body struct {
		Data PostView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Data.Post)
	require.NotNil(t, body.Data.Comments)
	assert.Empty(t, body.Data.Comments.Comments)
}

func TestCreatePost_ValidationShortCircuits(t *testing.T) {
	backendHit := false
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			backendHit = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data":{"id":1}}`)
		},
	})

	resp, err := app.Test(jsonRequest("POST", "/api/posts", fiber.Map{
		"title":   "a",
		"content": "too short title",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeErrorBody(t, resp).Code)
	assert.False(t, backendHit, "invalid input must never reach the backend")
}

func TestDeletePost_ProxiesDeletion(t *testing.T) {
	var sawMethod, sawPath string
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			sawMethod, sawPath = r.Method, r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"message":"deleted"}`)
		},
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/posts/9", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, http.MethodDelete, sawMethod)
	assert.Equal(t, "/api/posts/9", sawPath)
}

func TestLikePost_ReturnsResult(t *testing.T) {
	app, _ := newTestApp(t, testDeps{
		backend: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"isLiked":true,"likeCount":3}}`)
		},
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/posts/9/likes", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data models.LikeResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Data.IsLiked)
	assert.Equal(t, 3, body.Data.LikeCount)
}
