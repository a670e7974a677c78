package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

// DataLoaders holds the batched loaders used by the list endpoints, so
// resolving N peers costs one query instead of N.
type DataLoaders struct {
	PublicUsers *dataloader.Loader[int, *PublicUser]
}

// NewDataLoaders creates new dataloaders with the database connection
func NewDataLoaders(db *sql.DB) *DataLoaders {
	return &DataLoaders{
		PublicUsers: dataloader.NewBatchedLoader(publicUserBatchFn(db),
			dataloader.WithWait[int, *PublicUser](4*time.Millisecond)),
	}
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// DataLoaderMiddleware injects fresh per-request dataloaders into the
// request context. Per-request scope keeps the loader cache from serving
// stale profiles across requests.
func DataLoaderMiddleware(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dataloaders := NewDataLoaders(db)
			next.ServeHTTP(w, r.WithContext(WithDataLoaders(r.Context(), dataloaders)))
		})
	}
}

// loadPublicUsers resolves user ids to public views through the request's
// loader. Positions of unknown ids hold nil.
func loadPublicUsers(ctx context.Context, ids []int) ([]*PublicUser, error) {
	dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders)
	if !ok {
		return nil, fmt.Errorf("dataloaders missing from context")
	}
	users, errs := dl.PublicUsers.LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

// publicUserBatchFn loads a batch of public user views in one query.
func publicUserBatchFn(db *sql.DB) dataloader.BatchFunc[int, *PublicUser] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*PublicUser] {
		results := make([]*dataloader.Result[*PublicUser], len(keys))
		keyMap := make(map[int][]int, len(keys)) // userID -> result indexes
		for i, key := range keys {
			keyMap[key] = append(keyMap[key], i)
			results[i] = &dataloader.Result[*PublicUser]{}
		}
		if len(keys) == 0 {
			return results
		}

		placeholders := make([]string, len(keys))
		args := make([]interface{}, len(keys))
		for i, key := range keys {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = key
		}

		query := fmt.Sprintf(`
			SELECT id, name, role, bio, skills, location
			FROM users
			WHERE id IN (%s)
		`, strings.Join(placeholders, ", "))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		for rows.Next() {
			var u PublicUser
			var skills []byte
			if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.Bio, &skills, &u.Location); err != nil {
				for i := range results {
					if results[i].Data == nil && results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			u.Skills = unmarshalStrings(skills)
			for _, idx := range keyMap[u.ID] {
				user := u
				results[idx].Data = &user
			}
		}

		return results
	}
}
