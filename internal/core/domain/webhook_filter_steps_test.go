package domain

import (
	"context"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// filterWorld carries scenario state between steps.
type filterWorld struct {
	filter  WebhookFilter
	matched bool
}

func (w *filterWorld) destinationSubscribedTo(types string) error {
	w.filter.EventTypes = splitList(types)
	return nil
}

func (w *filterWorld) destinationScopedToAgents(agents string) error {
	w.filter.AgentIDs = splitList(agents)
	return nil
}

func (w *filterWorld) destinationOnlyWants(status string) error {
	w.filter.Status = StatusFilter(status)
	return nil
}

func (w *filterWorld) eventSucceeds(eventType, agentID string) error {
	w.matched = w.filter.Matches(eventType, agentID, true)
	return nil
}

func (w *filterWorld) eventFails(eventType, agentID string) error {
	w.matched = w.filter.Matches(eventType, agentID, false)
	return nil
}

func (w *filterWorld) eventIsDelivered() error {
	if !w.matched {
		return errFilterMismatch("expected delivery, event was dropped")
	}
	return nil
}

func (w *filterWorld) eventIsDropped() error {
	if w.matched {
		return errFilterMismatch("expected drop, event was delivered")
	}
	return nil
}

type errFilterMismatch string

func (e errFilterMismatch) Error() string { return string(e) }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func initFilterScenario(sc *godog.ScenarioContext) {
	w := &filterWorld{}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		*w = filterWorld{}
		return ctx, nil
	})

	sc.Given(`^a destination subscribed to "([^"]*)"$`, w.destinationSubscribedTo)
	sc.Given(`^the destination is scoped to agents "([^"]*)"$`, w.destinationScopedToAgents)
	sc.Given(`^the destination only wants "([^"]*)" outcomes$`, w.destinationOnlyWants)
	sc.When(`^an event of type "([^"]*)" from agent "([^"]*)" succeeds$`, w.eventSucceeds)
	sc.When(`^an event of type "([^"]*)" from agent "([^"]*)" fails$`, w.eventFails)
	sc.Then(`^the event is delivered$`, w.eventIsDelivered)
	sc.Then(`^the event is dropped$`, w.eventIsDropped)
}

func TestWebhookFilterFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initFilterScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("webhook filter feature suite failed")
	}
}
