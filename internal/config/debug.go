package config

import "os"

func IsDebug() bool {
	return os.Getenv("DATACOM_DEBUG") == "1"
}
