package main

import "time"

type Config struct {
	BufferSize      int           `env:"BUFFER_SIZE,required=true"`
	FlushInterval   time.Duration `env:"FLUSH_INTERVAL,required=true"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	JournalFilepath string        `env:"JOURNAL_FILEPATH"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
}
