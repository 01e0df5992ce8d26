package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photoquest/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.Validation("bad"), http.StatusBadRequest, "validation"},
		{domain.InsufficientFunds("broke"), http.StatusBadRequest, "insufficient_funds"},
		{domain.Unauthorized("who"), http.StatusUnauthorized, "unauthorized"},
		{domain.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{domain.NotFound("gone"), http.StatusNotFound, "not_found"},
		{domain.AlreadyProcessed("done"), http.StatusConflict, "already_processed"},
		{domain.AmountMismatch("price"), http.StatusConflict, "amount_mismatch"},
		{domain.InvalidState("state"), http.StatusConflict, "invalid_state"},
		{domain.Conflict("dup"), http.StatusConflict, "conflict"},
		{fmt.Errorf("wrapped: %w", domain.NotFound("x")), http.StatusNotFound, "not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"`+tc.kind+`"`)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestParamIDRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-4"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		_, ok := paramID(c, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"title":"x","total_pool":999}`))

	var u domain.QuestUpdate
	err := decodeStrict(c, &u)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFormFileStopsPastLimit(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("slip", "slip.png")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0xff}, 64))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	h := &Handler{MaxUploadBytes: 16}
	up, err := h.formFile(c, "slip")
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Len(t, up.Data, 17)

	missing, err := h.formFile(c, "qr")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubmitTopupValidatesForm(t *testing.T) {
	h := &Handler{}
	r := gin.New()
	r.POST("/topup", func(c *gin.Context) {
		c.Set("principal", domain.Principal{UserID: 1, Role: domain.RoleUser})
	}, h.SubmitTopup)

	req := httptest.NewRequest(http.MethodPost, "/topup", strings.NewReader("package_id=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "package_id")
}
