//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// RegisterSteps wires the step definitions for one scenario.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// callers
	ctx.Step(`^I am "([^"]*)"$`, tc.actAs)
	ctx.Step(`^I am anonymous$`, tc.actAnonymously)

	// payments
	ctx.Step(`^I register a payment with memo "([^"]*)"$`, tc.registerPayment)
	ctx.Step(`^I verify the payment with memo "([^"]*)"$`, tc.verifyPayment)

	// assets
	ctx.Step(`^I mint with memo "([^"]*)"$`, tc.mint)
	ctx.Step(`^I save the minted asset as "([^"]*)"$`, tc.saveAsset)
	ctx.Step(`^I look up asset "([^"]*)"$`, tc.lookUpAsset)
	ctx.Step(`^I list my assets$`, tc.listAssets)
	ctx.Step(`^I interact with asset "([^"]*)" saying "([^"]*)"$`, tc.interactSaying)
	ctx.Step(`^I interact with asset "([^"]*)" (\d+) times$`, tc.interactTimes)

	// assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, tc.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, tc.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be null$`, tc.fieldShouldBeNull)
	ctx.Step(`^the response should list (\d+) assets?$`, tc.shouldListAssets)
	ctx.Step(`^the response header "([^"]*)" should be present$`, tc.headerShouldBePresent)
}

func (tc *TestContext) actAs(_ context.Context, name string) error {
	tc.caller = name
	return nil
}

func (tc *TestContext) actAnonymously(context.Context) error {
	tc.caller = ""
	return nil
}

// memo returns a scenario-unique memo for alias so scenarios do not collide
// on a long-running server.
func (tc *TestContext) memo(alias string) uint64 {
	m, ok := tc.memos[alias]
	if !ok {
		m = rand.Uint64N(1<<53) + 1
		tc.memos[alias] = m
	}
	return m
}

func (tc *TestContext) registerPayment(ctx context.Context, alias string) error {
	return tc.do(ctx, http.MethodPost, "/payments", map[string]any{"memo": tc.memo(alias)})
}

func (tc *TestContext) verifyPayment(ctx context.Context, alias string) error {
	return tc.do(ctx, http.MethodGet, fmt.Sprintf("/payments/%d", tc.memo(alias)), nil)
}

func (tc *TestContext) mint(ctx context.Context, alias string) error {
	return tc.do(ctx, http.MethodPost, "/assets/mint", map[string]any{"memo": tc.memo(alias)})
}

func (tc *TestContext) saveAsset(_ context.Context, alias string) error {
	v, err := tc.field("identifier")
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok {
		return fmt.Errorf("identifier is %T, want number", v)
	}
	tc.assets[alias] = uint64(n)
	return nil
}

func (tc *TestContext) assetPath(alias string) (string, error) {
	assetID, ok := tc.assets[alias]
	if !ok {
		return "", fmt.Errorf("no saved asset %q", alias)
	}
	return fmt.Sprintf("/assets/%d", assetID), nil
}

func (tc *TestContext) lookUpAsset(ctx context.Context, alias string) error {
	path, err := tc.assetPath(alias)
	if err != nil {
		return err
	}
	return tc.do(ctx, http.MethodGet, path, nil)
}

func (tc *TestContext) listAssets(ctx context.Context) error {
	return tc.do(ctx, http.MethodGet, "/assets", nil)
}

func (tc *TestContext) interactSaying(ctx context.Context, alias, message string) error {
	path, err := tc.assetPath(alias)
	if err != nil {
		return err
	}
	return tc.do(ctx, http.MethodPost, path+"/interact", map[string]any{"message": message})
}

func (tc *TestContext) interactTimes(ctx context.Context, alias string, times int) error {
	path, err := tc.assetPath(alias)
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if err := tc.do(ctx, http.MethodPost, path+"/interact", map[string]any{}); err != nil {
			return err
		}
		if tc.lastStatus != http.StatusOK {
			return fmt.Errorf("interaction %d: status %d: %s", i+1, tc.lastStatus, tc.lastBody)
		}
	}
	return nil
}

func (tc *TestContext) statusShouldBe(_ context.Context, want int) error {
	if tc.lastStatus != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, tc.lastStatus, tc.lastBody)
	}
	return nil
}

func (tc *TestContext) errorShouldBe(ctx context.Context, want string) error {
	return tc.fieldShouldBe(ctx, "error", want)
}

func (tc *TestContext) fieldShouldBe(_ context.Context, name, want string) error {
	v, err := tc.field(name)
	if err != nil {
		return err
	}
	var got string
	switch t := v.(type) {
	case string:
		got = t
	case float64:
		got = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		got = fmt.Sprint(t)
	}
	if got != want {
		return fmt.Errorf("field %q: expected %q, got %q", name, want, got)
	}
	return nil
}

func (tc *TestContext) fieldShouldBeNull(_ context.Context, name string) error {
	v, err := tc.field(name)
	if err != nil {
		return err
	}
	if v != nil {
		return fmt.Errorf("field %q: expected null, got %v", name, v)
	}
	return nil
}

func (tc *TestContext) shouldListAssets(_ context.Context, want int) error {
	v, err := tc.field("assets")
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("assets is %T, want array", v)
	}
	if len(list) != want {
		return fmt.Errorf("expected %d assets, got %d", want, len(list))
	}
	return nil
}

func (tc *TestContext) headerShouldBePresent(_ context.Context, name string) error {
	if tc.lastHeader.Get(name) == "" {
		return fmt.Errorf("header %s missing", name)
	}
	return nil
}
