package config

const (
	EnvPrefix = "KIOSK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
