// Package contention fires many concurrent joins at a single room and reports
// how the chosen admission strategy coped.
package contention

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/boardmate/internal/model"
	"github.com/humanbelnik/boardmate/internal/storage"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidParams = errors.New("workers must be at least 1 and users non-negative")

type Params struct {
	MaxOccupancy int
	Users        int
	Workers      int
}

type Report struct {
	Strategy        string
	Succeeded       int
	RoomFull        int
	Failed          int
	FinalOccupancy  int
	MaxOccupancy    int
	ParticipantRows int
	Elapsed         time.Duration
}

// Overbooked is true when the room ended above its cap.
func (r Report) Overbooked() bool {
	return r.FinalOccupancy > r.MaxOccupancy
}

// Consistent is true when the occupancy counter matches the participant rows.
func (r Report) Consistent() bool {
	return r.FinalOccupancy == r.ParticipantRows
}

func (r Report) String() string {
	return fmt.Sprintf(
		"strategy=%s succeeded=%d full=%d failed=%d occupancy=%d/%d participants=%d overbooked=%t elapsed=%s",
		r.Strategy, r.Succeeded, r.RoomFull, r.Failed, r.FinalOccupancy, r.MaxOccupancy,
		r.ParticipantRows, r.Overbooked(), r.Elapsed.Round(time.Millisecond),
	)
}

// Run seeds a fresh room with its host and p.Users players, then lets every
// player join at once through svc with at most p.Workers joins in flight.
func Run(ctx context.Context, transactor storage.Transactor, svc usecase_admission.Service, strategy string, p Params) (Report, error) {
	if p.Workers < 1 || p.Users < 0 {
		return Report{}, fmt.Errorf("%w: workers=%d users=%d", ErrInvalidParams, p.Workers, p.Users)
	}

	room, players, err := seed(ctx, transactor, p)
	if err != nil {
		return Report{}, err
	}

	var (
		succeeded, full, failed atomic.Int32
		g                       errgroup.Group
	)
	g.SetLimit(p.Workers)

	start := time.Now()
	for _, playerID := range players {
		g.Go(func() error {
			_, err := svc.Join(ctx, playerID, room.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, usecase_admission.ErrCapacityExceeded):
				full.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	report := Report{
		Strategy:     strategy,
		Succeeded:    int(succeeded.Load()),
		RoomFull:     int(full.Load()),
		Failed:       int(failed.Load()),
		MaxOccupancy: p.MaxOccupancy,
		Elapsed:      elapsed,
	}

	err = transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		final, err := tx.Rooms().Get(ctx, room.ID)
		if err != nil {
			return err
		}
		participants, err := tx.Participants().FindByRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		report.FinalOccupancy = final.CurrentOccupancy
		report.ParticipantRows = len(participants)
		return nil
	})
	return report, err
}

func seed(ctx context.Context, transactor storage.Transactor, p Params) (*model.Room, []uuid.UUID, error) {
	host := model.User{ID: uuid.New(), Nickname: "host", CreatedAt: time.Now().UTC()}
	room, err := model.NewRoom(host.ID, model.RoomParams{
		Title:        "contention",
		GameDate:     time.Now().Add(time.Hour),
		MaxOccupancy: p.MaxOccupancy,
	})
	if err != nil {
		return nil, nil, err
	}

	players := make([]uuid.UUID, 0, p.Users)
	err = transactor.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Users().Create(ctx, &host); err != nil {
			return err
		}
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return err
		}
		if err := tx.Participants().Create(ctx, model.NewParticipant(room.ID, host.ID)); err != nil {
			return err
		}

		for i := range p.Users {
			player := model.User{ID: uuid.New(), Nickname: fmt.Sprintf("player-%d", i), CreatedAt: time.Now().UTC()}
			if err := tx.Users().Create(ctx, &player); err != nil {
				return err
			}
			players = append(players, player.ID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("seed room: %w", err)
	}
	return room, players, nil
}
