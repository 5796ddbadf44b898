package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	uploads := UploadHandler{
		Grants:        deps.Grants,
		Objects:       deps.Objects,
		Limiter:       deps.UploadLimiter,
		PublicBaseURL: deps.PublicBaseURL,
	}
	objects := ObjectHandler{
		Grants:           deps.Grants,
		Objects:          deps.Objects,
		MaxVideoSize:     deps.MaxVideoSize,
		MaxThumbnailSize: deps.MaxThumbnailSize,
	}
	videos := VideoHandler{
		Videos:              deps.Videos,
		Lookup:              deps.VideoLookup,
		Verifier:            deps.Verifier,
		PlaybackURLTemplate: deps.PlaybackURLTemplate,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/uploads/video", uploads.IssueVideo)
	mux.HandleFunc("/api/v1/uploads/thumbnail", uploads.IssueThumbnail)
	mux.HandleFunc("/api/v1/objects/{key...}", objects.Put)
	mux.HandleFunc("/api/v1/videos", videos.Create)
	mux.HandleFunc("/api/v1/videos/{id}", videos.Get)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Grants        GrantManager
	Objects       ObjectStore
	Videos        VideoStore
	VideoLookup   VideoLookup
	Verifier      AssetVerifier
	UploadLimiter RateLimiter

	PublicBaseURL       string
	PlaybackURLTemplate string
	MaxVideoSize        int64
	MaxThumbnailSize    int64
}
