package assessment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"interview-backend/internal/discovery"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/workspace"
)

// AssetError identifies exactly which asset failed to download.
type AssetError struct {
	Asset string
	Key   string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("acquire %s (%s): %v", e.Asset, e.Key, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// LocalBundle holds workspace paths of the downloaded assets, videos in
// discovery order.
type LocalBundle struct {
	ProfileImage string
	GovID        string
	Videos       []string
}

// acquirer downloads a candidate's assets into the workspace with
// bounded concurrency.
type acquirer struct {
	store       object.ObjectStore
	concurrency int
}

func newAcquirer(store object.ObjectStore, concurrency int) *acquirer {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &acquirer{store: store, concurrency: concurrency}
}

type fetchTask struct {
	asset string
	key   string
	dest  string
}

// Fetch downloads every asset in the bundle. The first failure is
// returned as an AssetError; partially downloaded files are left for
// workspace cleanup to sweep.
func (a *acquirer) Fetch(ctx context.Context, ws *workspace.Workspace, bundle discovery.Bundle) (LocalBundle, error) {
	local := LocalBundle{
		ProfileImage: ws.ImagePath("profile" + path.Ext(bundle.ProfileImage)),
		GovID:        ws.ImagePath("gov_id" + path.Ext(bundle.GovID)),
	}

	tasks := []fetchTask{
		{asset: "profile_image", key: bundle.ProfileImage, dest: local.ProfileImage},
		{asset: "gov_id", key: bundle.GovID, dest: local.GovID},
	}
	for i, key := range bundle.Videos {
		dest := ws.VideoPath(fmt.Sprintf("video_%d%s", i, path.Ext(key)))
		local.Videos = append(local.Videos, dest)
		tasks = append(tasks, fetchTask{asset: fmt.Sprintf("video_%d", i), key: key, dest: dest})
	}

	sem := make(chan struct{}, a.concurrency)
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task fetchTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = a.fetchOne(ctx, task)
		}(i, task)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return LocalBundle{}, &AssetError{Asset: tasks[i].asset, Key: tasks[i].key, Err: err}
		}
	}

	telemetry.Info("assets.acquired", map[string]any{
		"candidate_id": ws.CandidateID(),
		"files":        len(tasks),
	})
	return local, nil
}

func (a *acquirer) fetchOne(ctx context.Context, task fetchTask) error {
	src, err := a.store.Open(ctx, task.key)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(task.dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}
