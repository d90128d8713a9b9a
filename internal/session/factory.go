package session

import (
	"github.com/sirupsen/logrus"

	"github.com/grovetools/notify/command"
	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/pkg/paths"
	"github.com/grovetools/notify/pkg/source"
)

// SourceOptions maps configuration onto inotifywait options.
func SourceOptions(cfg *config.Config, exec command.Executor, logger *logrus.Entry) source.Options {
	return source.Options{
		Binary:           cfg.Source.Binary,
		Path:             cfg.Path,
		Recursive:        cfg.IsRecursive(),
		ExcludePatterns:  cfg.ExcludePatterns,
		ExplicitPathList: cfg.ExplicitPathList,
		Events:           cfg.RawKindFilter,
		ExtraArgs:        cfg.Source.Args,
		Env:              cfg.Source.Env,
		Dir:              cfg.Source.Dir,
		StopGrace:        cfg.Source.StopGraceDuration(),
		BufferSize:       cfg.BufferSize,
		Executor:         exec,
		Logger:           logger,
	}
}

// ProcessFactory builds inotifywait sources from cfg.
func ProcessFactory(cfg *config.Config, exec command.Executor, logger *logrus.Entry) Factory {
	return func() (source.Source, error) {
		p, err := source.NewProcess(SourceOptions(cfg, exec, logger))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func journalPath(cfg *config.Config) string {
	if cfg.Journal.Path != "" {
		return cfg.Journal.Path
	}
	return paths.JournalPath()
}
