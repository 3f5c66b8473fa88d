package config

// MediaConfig selects where uploaded actor photos and play posters are
// stored.  Backend "local" writes below Root and serves files at URLPrefix;
// backend "s3" uploads to an S3-compatible bucket.
type MediaConfig struct {
	Backend   string
	Root      string
	URLPrefix string
	MaxBytes  int64

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// LoadMediaConfig reads the media settings.  Defaults keep uploads on local
// disk under ./media.
func LoadMediaConfig() MediaConfig {
	return MediaConfig{
		Backend:           envStr("MEDIA_BACKEND", "local"),
		Root:              envStr("MEDIA_ROOT", "media"),
		URLPrefix:         envStr("MEDIA_URL", "/media"),
		MaxBytes:          int64(envInt("MEDIA_MAX_BYTES", 10<<20)),
		S3Bucket:          envStr("S3_BUCKET", ""),
		S3Region:          envStr("S3_REGION", "auto"),
		S3Endpoint:        envStr("S3_ENDPOINT", ""),
		S3AccessKeyID:     envStr("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: envStr("S3_SECRET_ACCESS_KEY", ""),
		S3PublicURL:       envStr("S3_PUBLIC_URL", ""),
	}
}
