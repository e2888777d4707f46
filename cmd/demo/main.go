package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	aiAdapters "content-studio/internal/infra/adapters/ai"
	"content-studio/internal/infra/adapters/generator"
	"content-studio/internal/infra/db/memory"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/worker"
	"content-studio/internal/usecase"
)

// demo walks one podcast through the job core in memory: concurrent enqueues
// collapse onto one job, the dispatcher runs it, and the router prints which
// cached queries each event makes stale.
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: log.Writer(), TimeFormat: time.Kitchen}).
		Level(zerolog.InfoLevel).With().Timestamp().Logger()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs := memory.NewJobRepo()
	entities := memory.NewEntityRepo()
	bus := events.NewBus(32, &logger)
	sub := bus.Subscribe("demo", nil)
	activity := usecase.NewActivityUseCase(memory.NewActivityRepo(), bus, &logger)
	jobUC := usecase.NewJobUseCase(jobs, entities, memory.NewTxManager(), bus, activity, &logger)

	// 1. An entity to generate for.
	pod, _ := model.NewEntity(model.EntityPodcast, "demo-user", "Weekly roundup", time.Now())
	if err := entities.Save(ctx, repository.NoTX, pod); err != nil {
		log.Fatalf("save entity: %v", err)
	}
	fmt.Printf("podcast %s created\n", pod.ID)

	// 2. Five clients ask for the same generation at once.
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]int{}
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, created, err := jobUC.Enqueue(ctx, model.PodcastPayload{PodcastID: pod.ID, UserID: "demo-user"}, "demo-user")
			if err != nil {
				log.Printf("enqueue: %v", err)
				return
			}
			mu.Lock()
			ids[job.ID]++
			mu.Unlock()
			if created {
				fmt.Printf("created job %s\n", job.ID)
			}
		}()
	}
	wg.Wait()
	fmt.Printf("distinct jobs after 5 concurrent enqueues: %d\n", len(ids))

	// 3. Run the dispatcher with the noop LLM and placeholder media.
	registry := generator.NewDefaultRegistry(generator.Deps{
		LLM:      aiAdapters.NewNoopAIAdapter(300*time.Millisecond, &logger),
		Media:    generator.NoopMedia{},
		Entities: entities,
		Model:    "gpt-4o-mini",
	})
	pool := worker.NewPool(2, &logger)
	pool.Start(ctx)
	defer pool.Stop()
	dispatcher := worker.NewDispatcher(jobs, jobUC, registry, worker.DispatcherConfig{PollInterval: 100 * time.Millisecond}, &logger)
	go dispatcher.Start(ctx, pool)

	// 4. Print events and their invalidations until the job completes.
	for {
		select {
		case <-ctx.Done():
			log.Fatal("demo timed out")
		case ev := <-sub.C():
			inv := cachesync.Route(ev)
			fmt.Printf("event %-22s invalidate=%v prefixes=%v\n", ev.Kind, inv.KeyStrings(), inv.Prefixes)
			if ev.Kind.IsCompletion() {
				job, err := jobUC.GetStatus(ctx, ev.JobID)
				if err != nil {
					log.Fatalf("status: %v", err)
				}
				fmt.Printf("job %s finished: %s\n", job.ID, job.Status)
				if r, ok := job.Result.(model.PodcastResult); ok {
					fmt.Printf("audio: %s (%ds)\n", r.AudioURL, r.Duration)
				}
				return
			}
		}
	}
}
