// Command testaddremove is an illustrative harness mirroring the original
// find_tags project's testAddRemoveTag.cpp: it replays a schedule of tag
// add/remove events against an automaton.Graph and logs the running
// #Nodes/#Sets/#Edges counts after every event. It is not a recognition
// loop: tag definitions come from a small YAML fixture, not a sqlite tag
// database, and there is no pulse stream to match against.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensorgnome-org/tagdfa/config"
	"github.com/sensorgnome-org/tagdfa/events"
	"github.com/sensorgnome-org/tagdfa/internal/automaton"
	"github.com/sensorgnome-org/tagdfa/logger"
	"github.com/sensorgnome-org/tagdfa/tag"
)

// fixtureTag is the YAML shape a schedule fixture's tag definitions use.
type fixtureTag struct {
	ID      int64     `yaml:"id"`
	FreqKHz float64   `yaml:"freqKHz"`
	Gaps    []float64 `yaml:"gaps"`
}

type fixtureEvent struct {
	Timestamp float64 `yaml:"timestamp"`
	Kind      string  `yaml:"kind"` // "add" or "remove"
	TagID     int64   `yaml:"tagId"`
}

type fixture struct {
	Tags   []fixtureTag   `yaml:"tags"`
	Events []fixtureEvent `yaml:"events"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML Params file (optional, defaults applied otherwise)")
	fixturePath := flag.String("fixture", "", "path to a YAML tag/event schedule fixture (required)")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "testaddremove: -fixture is required")
		os.Exit(2)
	}

	params := config.Default()
	if *configPath != "" {
		p, err := config.Load(*configPath)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("testaddremove: loading config")
		}
		params = p
	}

	sched, err := loadFixture(*fixturePath)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("testaddremove: loading fixture")
	}
	if err := sched.Validate(); err != nil {
		logger.Logger().Fatal().Err(err).Msg("testaddremove: invalid schedule")
	}

	g := automaton.New("testaddremove")
	log := logger.Logger()

	for i, ev := range sched {
		switch ev.Kind {
		case events.Add:
			_, proxy, err := g.AddTag(ev.Tag, params.Tolerance, params.TimeFuzz, params.MaxTime, params.MinTime)
			if err != nil {
				log.Warn().Err(err).Int("event", i).Msg("testaddremove: add failed")
			} else if proxy != nil {
				log.Info().Int("event", i).Int64("tag", int64(ev.Tag.ID)).Int64("proxy", int64(proxy.ID)).Msg("testaddremove: add (ambiguous)")
			} else {
				log.Info().Int("event", i).Int64("tag", int64(ev.Tag.ID)).Msg("testaddremove: add")
			}
		case events.Remove:
			id := ev.Tag.ID
			out, err := g.RemoveTag(id, params.Tolerance, params.TimeFuzz, params.MaxTime)
			if err != nil {
				log.Warn().Err(err).Int("event", i).Msg("testaddremove: remove failed")
			} else {
				log.Info().Int("event", i).Int64("tag", int64(id)).Int("outcome", int(out.Kind)).Msg("testaddremove: remove")
			}
		}
		log.Info().
			Int("nodes", g.NumNodes()).
			Int("sets", g.NumSets()).
			Int("edges", g.NumEdges()).
			Msg("testaddremove: counts")
	}
}

func loadFixture(path string) (events.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	byID := make(map[tag.ID]*tag.Tag, len(fx.Tags))
	for _, ft := range fx.Tags {
		byID[tag.ID(ft.ID)] = tag.New(tag.ID(ft.ID), ft.FreqKHz, ft.Gaps)
	}

	sched := make(events.Schedule, 0, len(fx.Events))
	for _, fe := range fx.Events {
		tg, ok := byID[tag.ID(fe.TagID)]
		if !ok {
			return nil, fmt.Errorf("event references unknown tag id %d", fe.TagID)
		}
		var kind events.Kind
		switch fe.Kind {
		case "add":
			kind = events.Add
		case "remove":
			kind = events.Remove
		default:
			return nil, fmt.Errorf("unknown event kind %q", fe.Kind)
		}
		sched = append(sched, events.Event{Timestamp: fe.Timestamp, Kind: kind, Tag: tg})
	}
	return sched, nil
}
