//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the roster API is running$`, tc.apiIsRunning)
	ctx.Step(`^I am logged in as the bootstrap admin$`, tc.loginAsAdmin)

	// Authentication steps
	ctx.Step(`^I log in with username "([^"]*)" and password "([^"]*)"$`, tc.login)
	ctx.Step(`^I save the session tokens$`, tc.saveSessionTokens)
	ctx.Step(`^I refresh the session$`, tc.refreshSession)
	ctx.Step(`^I replay the previous refresh token$`, tc.replayPreviousRefreshToken)
	ctx.Step(`^I log out$`, tc.logout)

	// User steps
	ctx.Step(`^I create a user with username "([^"]*)"$`, tc.createUser)
	ctx.Step(`^I save the created user id$`, tc.saveCreatedUserID)
	ctx.Step(`^I fetch the created user$`, tc.fetchCreatedUser)
	ctx.Step(`^I soft delete the created user$`, tc.softDeleteCreatedUser)
	ctx.Step(`^I list users with "([^"]*)"$`, tc.listUsers)

	// Request steps
	ctx.Step(`^I GET "([^"]*)"$`, tc.getPath)
	ctx.Step(`^I GET "([^"]*)" without a token$`, tc.getWithoutToken)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, tc.postWithEmptyBody)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, tc.responseShouldNotContain)
	ctx.Step(`^the data field "([^"]*)" should equal "([^"]*)"$`, tc.dataFieldShouldEqual)
}

func (tc *TestContext) apiIsRunning(ctx context.Context) error {
	if err := tc.GET("/healthz"); err != nil {
		return err
	}
	if tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("health check returned %d", tc.GetLastResponseStatus())
	}
	return nil
}

func (tc *TestContext) loginAsAdmin(ctx context.Context) error {
	if err := tc.login(ctx, tc.AdminUsername, tc.AdminPassword); err != nil {
		return err
	}
	if tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("admin login returned %d: %s", tc.GetLastResponseStatus(), string(tc.LastResponseBody))
	}
	return tc.saveSessionTokens(ctx)
}

func (tc *TestContext) login(ctx context.Context, username, password string) error {
	// Login is unauthenticated; a stale token must not leak into the request.
	tc.AccessToken = ""
	return tc.POST("/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	})
}

func (tc *TestContext) saveSessionTokens(ctx context.Context) error {
	access, err := tc.DataField("accessToken")
	if err != nil {
		return err
	}
	refresh, err := tc.DataField("refreshToken")
	if err != nil {
		return err
	}
	tc.AccessToken, _ = access.(string)
	tc.RefreshToken, _ = refresh.(string)
	if tc.AccessToken == "" || tc.RefreshToken == "" {
		return fmt.Errorf("login response missing tokens: %s", string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) refreshSession(ctx context.Context) error {
	tc.PreviousRefreshToken = tc.RefreshToken
	if err := tc.POST("/auth/refresh", map[string]interface{}{
		"refreshToken": tc.RefreshToken,
	}); err != nil {
		return err
	}
	if tc.GetLastResponseStatus() == 200 {
		return tc.saveSessionTokens(ctx)
	}
	return nil
}

func (tc *TestContext) replayPreviousRefreshToken(ctx context.Context) error {
	return tc.POST("/auth/refresh", map[string]interface{}{
		"refreshToken": tc.PreviousRefreshToken,
	})
}

func (tc *TestContext) logout(ctx context.Context) error {
	return tc.POST("/auth/logout", map[string]interface{}{
		"refreshToken": tc.RefreshToken,
	})
}

func (tc *TestContext) createUser(ctx context.Context, username string) error {
	return tc.POST("/users", map[string]interface{}{
		"username": username,
		"password": "e2e-password-123",
		"fullName": "E2E User",
	})
}

func (tc *TestContext) saveCreatedUserID(ctx context.Context) error {
	user, err := tc.DataField("user")
	if err != nil {
		return err
	}
	view, ok := user.(map[string]interface{})
	if !ok {
		return fmt.Errorf("user field is not an object: %s", string(tc.LastResponseBody))
	}
	id, _ := view["id"].(string)
	if id == "" {
		return fmt.Errorf("created user has no id: %s", string(tc.LastResponseBody))
	}
	tc.CreatedUserID = id
	return nil
}

func (tc *TestContext) fetchCreatedUser(ctx context.Context) error {
	return tc.GET("/users/" + tc.CreatedUserID)
}

func (tc *TestContext) softDeleteCreatedUser(ctx context.Context) error {
	return tc.DELETE("/users/" + tc.CreatedUserID + "?mode=soft")
}

func (tc *TestContext) listUsers(ctx context.Context, rawQuery string) error {
	path := "/users"
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	return tc.GET(path)
}

func (tc *TestContext) getPath(ctx context.Context, path string) error {
	return tc.GET(path)
}

func (tc *TestContext) getWithoutToken(ctx context.Context, path string) error {
	saved := tc.AccessToken
	tc.AccessToken = ""
	err := tc.GET(path)
	tc.AccessToken = saved
	return err
}

func (tc *TestContext) postWithEmptyBody(ctx context.Context, path string) error {
	return tc.POST(path, map[string]interface{}{})
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	if tc.GetLastResponseStatus() != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, tc.GetLastResponseStatus(), string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldNotContain(ctx context.Context, text string) error {
	if tc.ResponseContains(text) {
		return fmt.Errorf("response should not contain %q\nResponse: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) dataFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("failed to parse data payload: %w", err)
	}
	actual, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response data", field)
	}
	if !strings.EqualFold(fmt.Sprint(actual), expectedValue) {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actual)
	}
	return nil
}
