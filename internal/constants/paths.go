package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultOutputDir is where preview, error and guide files are written
const DefaultOutputDir = "output"

// DefaultLogsDir is where the deletion journal is written
const DefaultLogsDir = "logs"

// DefaultSessionFile stores the MTProto login between runs
const DefaultSessionFile = "~/.tgpurge/session.json"

// FileTimestampLayout is used in every generated file name (YYYYMMDD_HHMMSS)
const FileTimestampLayout = "20060102_150405"
