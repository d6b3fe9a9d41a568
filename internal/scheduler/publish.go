package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maheshrc27/socialdeck/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/maheshrc27/socialdeck/internal/scheduler")

// publishOne claims the post, sends it to every platform and records the
// final status. An error means the post could not be claimed or its final
// status could not be written.
func (e *Engine) publishOne(ctx context.Context, post *models.Post, from models.PostStatus) (models.PublishOutcome, error) {
	ctx, span := tracer.Start(ctx, "scheduler.publish_one")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("post.id", post.ID),
		attribute.Int64("post.user_id", post.UserID),
		attribute.StringSlice("post.platforms", post.Platforms),
	)

	outcome := models.PublishOutcome{
		PostID:    post.ID,
		UserID:    post.UserID,
		Status:    post.Status,
		StartedAt: e.opts.Now(),
	}

	claimed, err := e.store.ClaimForPublishing(ctx, post.ID, from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return outcome, fmt.Errorf("claim post %d: %w", post.ID, err)
	}
	if !claimed {
		slog.Info("post already claimed elsewhere, skipping", "post_id", post.ID)
		outcome.Skipped = true
		outcome.FinishedAt = e.opts.Now()
		span.SetAttributes(attribute.Bool("post.skipped", true))
		return outcome, nil
	}
	outcome.Status = models.PostStatusPublishing

	accounts := e.usableAccounts(ctx, post)
	outcome.Results = e.publishPlatforms(ctx, post, accounts)

	now := e.opts.Now()
	status := models.FinalStatus(outcome.Results)
	fields := models.StatusFields{}
	if status == models.PostStatusPublished {
		fields.PublishedAt = &now
	} else {
		fields.LastError = summarizeFailures(outcome.Results, len(accounts) == 0)
	}

	if err := e.store.UpdateStatus(ctx, post.ID, status, fields); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status write failed")
		return outcome, fmt.Errorf("write status of post %d: %w", post.ID, err)
	}
	outcome.Status = status
	outcome.FinishedAt = e.opts.Now()
	span.SetAttributes(attribute.String("post.status", string(status)))

	slog.Info("post processed", "post_id", post.ID, "status", status, "platforms", len(outcome.Results))
	e.record(ctx, post, outcome)
	return outcome, nil
}

// usableAccounts resolves the owner's accounts and drops inactive or expired
// ones. A resolver failure is treated as having no accounts.
func (e *Engine) usableAccounts(ctx context.Context, post *models.Post) []*models.SocialAccount {
	all, err := e.accounts.ActiveAccountsForUser(ctx, post.UserID, post.Platforms)
	if err != nil {
		slog.Warn("could not resolve accounts", "post_id", post.ID, "user_id", post.UserID, "error", err)
		return nil
	}

	now := e.opts.Now()
	usable := make([]*models.SocialAccount, 0, len(all))
	for _, a := range all {
		if a.Usable(now) {
			usable = append(usable, a)
		}
	}
	return usable
}

// publishPlatforms calls every platform concurrently and returns once all have
// answered, in the post's platform order.
func (e *Engine) publishPlatforms(ctx context.Context, post *models.Post, accounts []*models.SocialAccount) []models.PublishResult {
	results := make([]models.PublishResult, len(post.Platforms))

	byPlatform := make(map[string]*models.SocialAccount, len(accounts))
	for _, a := range accounts {
		if _, ok := byPlatform[a.Platform]; !ok {
			byPlatform[a.Platform] = a
		}
	}

	var wg sync.WaitGroup
	for i, platform := range post.Platforms {
		account, ok := byPlatform[platform]
		if !ok {
			results[i] = models.PublishResult{
				Platform: platform,
				Error:    fmt.Sprintf("no active %s account", platform),
			}
			continue
		}

		wg.Add(1)
		go func(i int, platform string, account *models.SocialAccount) {
			defer wg.Done()
			results[i] = e.publisher.Publish(ctx, platform, account, post.Content, post.MediaRefs)
			results[i].Platform = platform
		}(i, platform, account)
	}
	wg.Wait()

	return results
}

func summarizeFailures(results []models.PublishResult, noAccounts bool) string {
	if noAccounts {
		return "no active account for any of the post's platforms"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Success {
			parts = append(parts, r.Platform+": "+r.Error)
		}
	}
	if len(parts) == 0 {
		return "no platforms to publish to"
	}
	return strings.Join(parts, "; ")
}

// record fans the outcome out to the optional history, event and metrics sinks.
func (e *Engine) record(ctx context.Context, post *models.Post, outcome models.PublishOutcome) {
	e.opts.Metrics.PostFinished(outcome.Status)
	for _, r := range outcome.Results {
		e.opts.Metrics.PlatformResult(r.Platform, r.Success)
	}

	if e.opts.History != nil {
		for _, r := range outcome.Results {
			_, err := e.opts.History.Create(ctx, &models.PostingHistory{
				UserID:       post.UserID,
				PostID:       post.ID,
				AccountID:    r.AccountID,
				Platform:     r.Platform,
				Success:      r.Success,
				ExternalID:   r.PostID,
				ErrorMessage: r.Error,
			})
			if err != nil {
				slog.Warn("could not record posting history", "post_id", post.ID, "platform", r.Platform, "error", err)
			}
		}
	}

	if e.opts.Events != nil {
		if err := e.opts.Events.Emit(ctx, outcome); err != nil {
			slog.Warn("could not emit publish outcome", "post_id", post.ID, "error", err)
		}
	}
}
