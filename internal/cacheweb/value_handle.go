package cacheweb

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/cachekey"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/IsaacDSC/sweetcache/pkg/httpadapter"
	"github.com/IsaacDSC/sweetcache/pkg/intertime"
)

const maxBodyBytes = 1 << 20

var errInvalidTTL = errors.New("ttl must be a positive duration or number of seconds")

func GetHealthCheckHandler(cache Cache) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/v1/ping",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			if !cache.IsAvailable(r.Context()) {
				http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("pong"))
		},
	}
}

func GetValue(cache Cache) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/v1/cache/{key}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			key := cachekey.Scalar(r.PathValue("key"))

			var value any
			if err := cache.Get(r.Context(), key, &value); err != nil {
				writeError(w, r, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if err := json.NewEncoder(w).Encode(value); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		},
	}
}

func PutValue(cache Cache, defaultTTL expiry.TTL) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "PUT /api/v1/cache/{key}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			key := cachekey.Scalar(r.PathValue("key"))

			ttl, err := parseTTL(r.URL.Query().Get("ttl"), defaultTTL)
			if err != nil {
				writeError(w, r, err)
				return
			}

			var value any
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&value); err != nil {
				http.Error(w, fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
				return
			}

			if err := cache.Set(r.Context(), key, value, ttl); err != nil {
				writeError(w, r, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)
		},
	}
}

func DeleteValue(cache Cache) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "DELETE /api/v1/cache/{key}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			if err := cache.Delete(r.Context(), cachekey.Scalar(r.PathValue("key"))); err != nil {
				writeError(w, r, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)
		},
	}
}

// parseTTL reads "30s"-style durations or whole seconds.
func parseTTL(raw string, def expiry.TTL) (expiry.TTL, error) {
	if raw == "" {
		return def, nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if seconds <= 0 {
			return expiry.Never, errInvalidTTL
		}
		return expiry.After(time.Duration(seconds) * time.Second), nil
	}

	var d intertime.Duration
	if err := d.UnmarshalText([]byte(raw)); err != nil || d.Std() <= 0 {
		return expiry.Never, errInvalidTTL
	}

	return expiry.After(d.Std()), nil
}
