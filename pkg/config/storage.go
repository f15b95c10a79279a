package config

type StorageMode string

const (
	StorageModeLocal StorageMode = "local"
	StorageModeS3    StorageMode = "s3"
)

// StorageConfig locates the spreadsheet exports dropped for import
type StorageConfig struct {
	Mode          StorageMode
	LocalDir      string
	S3Bucket      string
	S3Prefix      string
	AWSRegion     string
	InboxPrefix   string
	ArchivePrefix string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Mode:          StorageMode(getEnv("STORAGE_MODE", "local")),
		LocalDir:      getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:      getEnv("AWS_BUCKET", ""),
		S3Prefix:      getEnv("AWS_PREFIX", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		InboxPrefix:   getEnv("IMPORT_INBOX_PREFIX", "imports/inbox"),
		ArchivePrefix: getEnv("IMPORT_ARCHIVE_PREFIX", "imports/archive"),
	}
}
