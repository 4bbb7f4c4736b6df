package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Objects is the bucket surface the snapshot archive needs.
type Objects interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteKey(ctx context.Context, key string) error
	Link(ctx context.Context, key string) (string, error)
}

// Artifact is one rendered file of a snapshot.
type Artifact struct {
	Ext         string
	ContentType string
	Body        []byte
}

type SnapshotFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Snapshot struct {
	ID         string                  `json:"id"`
	MerchantID int64                   `json:"merchantId"`
	Date       string                  `json:"date"`
	CreatedAt  time.Time               `json:"createdAt"`
	Files      map[string]SnapshotFile `json:"files"`
}

type Archive struct {
	objects Objects
	newID   func() string
}

func NewArchive(objects Objects) *Archive {
	return &Archive{objects: objects, newID: func() string { return uuid.NewString() }}
}

func merchantPrefix(merchantID int64) string {
	return fmt.Sprintf("analytics/%d/", merchantID)
}

// SnapshotKey is analytics/{merchantId}/{date}/{id}.{ext}.
func SnapshotKey(merchantID int64, date, id, ext string) string {
	return path.Join("analytics", fmt.Sprint(merchantID), date, id+"."+strings.TrimPrefix(ext, "."))
}

// Store uploads every artifact under one snapshot id. date is the report day
// in the merchant's timezone.
func (a *Archive) Store(ctx context.Context, merchantID int64, date string, createdAt time.Time, artifacts []Artifact) (Snapshot, error) {
	snap := Snapshot{
		ID:         a.newID(),
		MerchantID: merchantID,
		Date:       date,
		CreatedAt:  createdAt,
		Files:      make(map[string]SnapshotFile, len(artifacts)),
	}
	for _, artifact := range artifacts {
		ext := strings.TrimPrefix(artifact.Ext, ".")
		key := SnapshotKey(merchantID, date, snap.ID, ext)
		url, err := a.objects.PutObject(ctx, key, artifact.Body, artifact.ContentType)
		if err != nil {
			return Snapshot{}, fmt.Errorf("upload snapshot %s: %w", ext, err)
		}
		snap.Files[ext] = SnapshotFile{Key: key, URL: url}
	}
	return snap, nil
}

// JSONArtifact encodes v as a .json artifact.
func JSONArtifact(v any) (Artifact, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Ext: "json", ContentType: "application/json", Body: body}, nil
}

// List groups the merchant's stored objects back into snapshots, newest day
// first.
func (a *Archive) List(ctx context.Context, merchantID int64) ([]Snapshot, error) {
	keys, err := a.objects.ListKeys(ctx, merchantPrefix(merchantID))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Snapshot)
	order := make([]string, 0)
	for _, key := range keys {
		date, id, ext, ok := parseSnapshotKey(key, merchantID)
		if !ok {
			continue
		}
		snap, exists := byID[id]
		if !exists {
			snap = &Snapshot{ID: id, MerchantID: merchantID, Date: date, Files: map[string]SnapshotFile{}}
			byID[id] = snap
			order = append(order, id)
		}
		url, err := a.objects.Link(ctx, key)
		if err != nil {
			return nil, err
		}
		snap.Files[ext] = SnapshotFile{Key: key, URL: url}
	}

	out := make([]Snapshot, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// Prune deletes snapshots of days before cutoff (YYYY-MM-DD).
func (a *Archive) Prune(ctx context.Context, merchantID int64, cutoff string) (int, error) {
	keys, err := a.objects.ListKeys(ctx, merchantPrefix(merchantID))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		date, _, _, ok := parseSnapshotKey(key, merchantID)
		if !ok || date >= cutoff {
			continue
		}
		if err := a.objects.DeleteKey(ctx, key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func parseSnapshotKey(key string, merchantID int64) (date, id, ext string, ok bool) {
	rest := strings.TrimPrefix(key, merchantPrefix(merchantID))
	if rest == key {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return "", "", "", false
	}
	name := parts[1]
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return "", "", "", false
	}
	return parts[0], name[:dot], name[dot+1:], true
}
