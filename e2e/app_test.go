package e2e

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite drives the running server over HTTP.
type E2ETestSuite struct {
	suite.Suite
	pw    *playwright.Playwright
	anon  playwright.APIRequestContext
	admin playwright.APIRequestContext
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	suite.anon = suite.newClient(nil)
	suite.admin = suite.newClient(map[string]string{"Authorization": basicAuth(adminUser, adminPassword)})
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	for _, c := range []playwright.APIRequestContext{suite.anon, suite.admin} {
		if c != nil {
			c.Dispose()
		}
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

func (suite *E2ETestSuite) newClient(headers map[string]string) playwright.APIRequestContext {
	ctx, err := suite.pw.Request.NewContext(playwright.APIRequestNewContextOptions{
		BaseURL:          playwright.String(appURL),
		ExtraHttpHeaders: headers,
	})
	require.NoError(suite.T(), err, "could not create request context")
	return ctx
}

func basicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func (suite *E2ETestSuite) post(c playwright.APIRequestContext, path string, body map[string]any) playwright.APIResponse {
	resp, err := c.Post(path, playwright.APIRequestContextPostOptions{Data: body})
	require.NoError(suite.T(), err, "POST %s", path)
	return resp
}

func (suite *E2ETestSuite) decode(resp playwright.APIResponse) map[string]any {
	var out map[string]any
	require.NoError(suite.T(), resp.JSON(&out))
	return out
}

// register creates a user through the API and returns a client signed in as them.
func (suite *E2ETestSuite) register(username string) playwright.APIRequestContext {
	const password = "Passw0rd!"
	resp := suite.post(suite.anon, "/api/users", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
	require.Equal(suite.T(), http.StatusCreated, resp.Status())

	c := suite.newClient(map[string]string{"Authorization": basicAuth(username, password)})
	suite.T().Cleanup(func() { c.Dispose() })
	return c
}

func (suite *E2ETestSuite) TestHello() {
	resp, err := suite.anon.Get("/api")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.Status())
	assert.Equal(suite.T(), "Hello, World", suite.decode(resp)["message"])
}

func (suite *E2ETestSuite) TestAdminIsSeeded() {
	resp, err := suite.admin.Get("/api/users/me")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())
	assert.Equal(suite.T(), adminUser, suite.decode(resp)["username"])
}

func (suite *E2ETestSuite) TestRequiresAuth() {
	resp, err := suite.anon.Get("/api/expenses")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Status())
}

func (suite *E2ETestSuite) TestRegisterRejectsWeakPassword() {
	resp := suite.post(suite.anon, "/api/users", map[string]any{
		"username": "weak",
		"email":    "weak@example.com",
		"password": "password",
	})
	require.Equal(suite.T(), http.StatusUnprocessableEntity, resp.Status())
	body := suite.decode(resp)
	assert.Equal(suite.T(), "validation_error", body["error"])
	assert.Equal(suite.T(), "password", body["field"])
}

func (suite *E2ETestSuite) TestNextCheck() {
	c := suite.register("planner")

	today := time.Now()
	resp := suite.post(c, "/api/income", map[string]any{
		"amount":     2000,
		"recent_pay": today.Format("01-02-2006"),
	})
	require.Equal(suite.T(), http.StatusCreated, resp.Status())

	// A day a few days out, skipping the 31st which is not a valid due day.
	due := today.AddDate(0, 0, 3)
	for due.Day() > 30 {
		due = due.AddDate(0, 0, 1)
	}
	resp = suite.post(c, "/api/expenses", map[string]any{"name": "rent", "amount": 900, "due_date": due.Day()})
	require.Equal(suite.T(), http.StatusCreated, resp.Status())

	resp, err := c.Get("/api/next-check")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())
	plan := suite.decode(resp)
	assert.Equal(suite.T(), today.AddDate(0, 0, 14).Format("2006-01-02"), plan["next_pay"])
	assert.Equal(suite.T(), "900", plan["total"])
}

func (suite *E2ETestSuite) TestExpenseValidation() {
	c := suite.register("validator")

	tests := []struct {
		body  map[string]any
		code  string
		field string
	}{
		{map[string]any{"name": "rent", "amount": 900, "due_date": 31}, "validation_error", "due_date"},
		{map[string]any{"name": "rent", "amount": -1}, "validation_error", "amount"},
		{map[string]any{"amount": 900}, "validation_error", "name"},
		{map[string]any{"name": "rent", "amount": 900, "income_id": 99999}, "referential_error", "income_id"},
	}
	for _, tt := range tests {
		suite.Run(fmt.Sprint(tt.body), func() {
			resp := suite.post(c, "/api/expenses", tt.body)
			require.Equal(suite.T(), http.StatusUnprocessableEntity, resp.Status())
			body := suite.decode(resp)
			assert.Equal(suite.T(), tt.code, body["error"])
			assert.Equal(suite.T(), tt.field, body["field"])
		})
	}
}

func (suite *E2ETestSuite) TestPartialUpdate() {
	c := suite.register("patcher")

	resp := suite.post(c, "/api/expenses", map[string]any{"name": "gym", "amount": 40, "due_date": 5})
	require.Equal(suite.T(), http.StatusCreated, resp.Status())
	id := suite.decode(resp)["id"]

	path := fmt.Sprintf("/api/expenses/%v", id)
	resp, err := c.Patch(path, playwright.APIRequestContextPatchOptions{Data: map[string]any{"amount": 45}})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())
	body := suite.decode(resp)
	assert.Equal(suite.T(), "gym", body["name"])
	assert.Equal(suite.T(), "45", body["amount"])
	assert.EqualValues(suite.T(), 5, body["due_date"])

	resp, err = c.Delete(path)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNoContent, resp.Status())
}

func TestE2E(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
