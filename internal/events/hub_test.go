package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/minimarket/internal/dependencies/mocks"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/testutil"
)

type HubSuite struct {
	suite.Suite
	hub   *Hub
	clock *mocks.MockClock
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.hub = NewHub(s.clock, testutil.NopLogger())
	go s.hub.Run()
}

func (s *HubSuite) TearDownTest() {
	s.hub.Close()
}

func (s *HubSuite) receive(sub *Subscriber) model.Event {
	select {
	case ev, ok := <-sub.Events():
		s.Require().True(ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for event")
		return model.Event{}
	}
}

func (s *HubSuite) assertNoEvent(sub *Subscriber) {
	select {
	case ev := <-sub.Events():
		s.Failf("unexpected event", "%+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *HubSuite) TestPublishDeliversToSubscriber() {
	sub := s.hub.Subscribe("")

	s.hub.Publish(model.EventProfileSaved, "p1", "")

	ev := s.receive(sub)
	s.Equal(model.EventProfileSaved, ev.Type)
	s.Equal(model.ProfileID("p1"), ev.ProfileID)
	s.Equal(s.clock.Now(), ev.Timestamp)
	_, err := uuid.Parse(ev.ID)
	s.NoError(err)
}

func (s *HubSuite) TestEventsHaveUniqueIDs() {
	sub := s.hub.Subscribe("")

	s.hub.Publish(model.EventProfileLoaded, "p1", "")
	s.hub.Publish(model.EventProfileLoaded, "p1", "")

	s.NotEqual(s.receive(sub).ID, s.receive(sub).ID)
}

func (s *HubSuite) TestFanOutToEverySubscriber() {
	a := s.hub.Subscribe("")
	b := s.hub.Subscribe("")

	s.hub.Publish(model.EventSaveFailed, "p1", "disk full")

	s.Equal("disk full", s.receive(a).Error)
	s.Equal("disk full", s.receive(b).Error)
}

func (s *HubSuite) TestProfileFilter() {
	sub := s.hub.Subscribe("p2")

	s.hub.Publish(model.EventProfileSaved, "p1", "")
	s.hub.Publish(model.EventProfileDeleted, "p2", "")

	ev := s.receive(sub)
	s.Equal(model.EventProfileDeleted, ev.Type)
	s.assertNoEvent(sub)
}

func (s *HubSuite) TestFullSubscriberDoesNotBlockOthers() {
	slow := s.hub.Subscribe("")
	fast := s.hub.Subscribe("p-last")

	for range subscriberBufferSize + 10 {
		s.hub.Publish(model.EventProfileLoaded, "p1", "")
	}
	s.hub.Publish(model.EventProfileSaved, "p-last", "")

	s.Equal(model.EventProfileSaved, s.receive(fast).Type)
	s.Eventually(func() bool {
		return len(slow.Events()) == subscriberBufferSize
	}, time.Second, 10*time.Millisecond)
}

func (s *HubSuite) TestUnsubscribeClosesChannel() {
	sub := s.hub.Subscribe("")
	s.Eventually(func() bool { return s.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	s.hub.Unsubscribe(sub)

	_, ok := <-sub.Events()
	s.False(ok)
	s.Equal(0, s.hub.SubscriberCount())
}

func (s *HubSuite) TestCloseDisconnectsSubscribers() {
	sub := s.hub.Subscribe("")

	s.hub.Close()

	s.Eventually(func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func (s *HubSuite) TestOperationsAfterCloseDoNotBlock() {
	s.hub.Close()
	s.hub.Close()

	sub := s.hub.Subscribe("")
	_, ok := <-sub.Events()
	s.False(ok)

	s.hub.Publish(model.EventProfileSaved, "p1", "")
	s.hub.Unsubscribe(sub)
}
