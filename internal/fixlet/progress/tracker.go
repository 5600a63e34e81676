package progress

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fixlet/internal/fixlet/domain"
	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

// Tracker follows a repair job over the push channel until a terminal event
// arrives or the watchdog fires. One subscription per invocation; the
// watchdog bounds total wait time and is never reset by incoming progress.
type Tracker struct {
	wsBaseURL string
	watchdog  time.Duration
	dialer    *websocket.Dialer
	logger    *logger.Logger
}

func NewTracker(wsBaseURL string, watchdog time.Duration) *Tracker {
	if watchdog <= 0 {
		watchdog = 10 * time.Minute
	}
	return &Tracker{
		wsBaseURL: strings.TrimRight(wsBaseURL, "/"),
		watchdog:  watchdog,
		dialer:    websocket.DefaultDialer,
		logger:    logger.WithField("component", "progress-tracker"),
	}
}

// Wait subscribes to the job's progress channel and blocks until the job
// completes, errors, the watchdog fires, or the transport fails. Malformed
// frames are ignored; a change in status or progress is logged once.
func (t *Tracker) Wait(ctx context.Context, jobID string) (*domain.ProgressEvent, error) {
	endpoint := t.wsBaseURL + "/job/progress/" + jobID

	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeWSError, err,
			"failed to open progress channel")
	}
	defer conn.Close()

	t.logger.Info("progress channel open", "jobId", jobID)

	done := make(chan struct{})
	defer close(done)

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, readE := conn.ReadMessage()
			if readE != nil {
				readErr <- readE
				return
			}
			select {
			case frames <- msg:
			case <-done:
				return
			}
		}
	}()

	watchdog := time.NewTimer(t.watchdog)
	defer watchdog.Stop()

	var lastStatus domain.JobStatus
	var lastProgress *float64

	for {
		select {
		case <-watchdog.C:
			t.logger.Error("watchdog fired before a terminal event", "jobId", jobID, "after", t.watchdog)
			return nil, errors.New(errors.CodeJobTimeout,
				"job %s did not finish within %s", jobID, t.watchdog)

		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeWSError, ctx.Err(),
				"progress wait cancelled")

		case readE := <-readErr:
			return nil, errors.Wrap(errors.CodeWSError, readE,
				"push channel closed before a terminal status")

		case msg := <-frames:
			var event domain.ProgressEvent
			if unmarshalErr := json.Unmarshal(msg, &event); unmarshalErr != nil || event.Status == "" {
				// malformed frames are noise, not failures
				continue
			}
			event.Raw = append(json.RawMessage(nil), msg...)

			if event.Status != lastStatus || !sameProgress(event.Progress, lastProgress) {
				t.logger.Info("job progress",
					"jobId", jobID,
					"status", string(event.Status),
					"progress", progressValue(event.Progress))
				lastStatus = event.Status
				lastProgress = event.Progress
			}

			switch event.Status {
			case domain.StatusError:
				return nil, errors.New(errors.CodeJobError,
					"repair job %s reported failure", jobID).
					WithProgress(event.Progress).
					WithHTTP(0, string(event.Raw))
			case domain.StatusCompleted:
				return &event, nil
			}
		}
	}
}

func sameProgress(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func progressValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
