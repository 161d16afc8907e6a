package realtime_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/m-mizutani/gt"
	"github.com/redis/go-redis/v9"

	"github.com/aura-webinar/gtw-tools/internal/messenger"
	"github.com/aura-webinar/gtw-tools/internal/realtime"
)

func newRedisPubSub(t *testing.T, mr *miniredis.Miniredis) *realtime.RedisPubSub {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return realtime.NewRedisPubSub(client, nil)
}

type delivery struct {
	event   string
	payload string
}

func TestRedisPubSubDeliversToTopic(t *testing.T) {
	mr := miniredis.RunT(t)
	pub := newRedisPubSub(t, mr)
	sub := newRedisPubSub(t, mr)

	got := make(chan delivery, 4)
	cancel, err := sub.SubscribeProgress("run-1", func(event string, payload []byte) {
		got <- delivery{event, string(payload)}
	})
	gt.NoError(t, err).Required()
	defer cancel()

	gt.NoError(t, pub.PublishProgressEvent("run-2", realtime.EventSendProgress, []byte(`{"runId":"run-2"}`))).Required()
	gt.NoError(t, pub.PublishProgressEvent("run-1", realtime.EventSendCompleted, []byte(`{"runId":"run-1"}`))).Required()

	select {
	case d := <-got:
		gt.Equal(t, delivery{realtime.EventSendCompleted, `{"runId":"run-1"}`}, d)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case d := <-got:
		t.Fatalf("unexpected delivery %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisPubSubStopsAfterCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := newRedisPubSub(t, mr)

	cancel, err := ps.SubscribeProgress(realtime.AllRuns, func(string, []byte) {})
	gt.NoError(t, err).Required()
	eventually(t, func() bool { return mr.PubSubNumSub("gtw:progress:"+realtime.AllRuns)["gtw:progress:"+realtime.AllRuns] == 1 })

	cancel()
	eventually(t, func() bool { return mr.PubSubNumSub("gtw:progress:"+realtime.AllRuns)["gtw:progress:"+realtime.AllRuns] == 0 })
}

func TestHubsShareProgressThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	localBus := newRedisPubSub(t, mr)
	remoteBus := newRedisPubSub(t, mr)
	local := realtime.NewHub(nil, localBus, localBus)
	remote := realtime.NewHub(nil, remoteBus, remoteBus)
	t.Cleanup(local.Close)
	t.Cleanup(remote.Close)

	conn := dial(t, remote, serve(t, remote)+"?run_id=run-7", "run-7")
	eventually(t, func() bool { return mr.PubSubNumSub("gtw:progress:run-7")["gtw:progress:run-7"] == 1 })

	local.SendProgress(messenger.Progress{RunID: "run-7", Total: 3})

	msg := read(t, conn)
	gt.Equal(t, realtime.EventSendProgress, msg.Event)
	gt.Equal(t, "run-7", decodeRun(t, msg))
}
