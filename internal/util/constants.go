package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)
