// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipelines

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/internal/pkg/steps"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
	"github.com/rails/buildkite-config/pkg/version"
)

const (
	isolatedGroup = "isolated"
	buildGroup    = "build"

	parallelMarker = "BUILDKITE_PARALLEL"

	railspectCommand = "tools/railspect changelogs . && tools/railspect configuration ."
)

var (
	rails5      = version.MustParse("5.x")
	rails51     = version.MustParse("5.1.x")
	rails6      = version.MustParse("6.x")
	rails61     = version.MustParse("6.1")
	rails61x    = version.MustParse("6.1.x")
	rails70     = version.MustParse("7.0")
	rails7      = version.MustParse("7.x")
	guidesRegEx = regexp.MustCompile(`^guides`)
)

// subsystem is one row of a test table: a Rails directory, its rake task and the
// docker-compose service it runs in.
type subsystem struct {
	dir     string
	task    string
	service string
}

// Tested on every ruby, with isolated variants on mainline branches.
var isolatedSubsystems = []subsystem{
	{"actionpack", "test", "default"},
	{"actionmailer", "test", "default"},
	{"activemodel", "test", "default"},
	{"activesupport", "test", "default"},
	{"actionview", "test", "default"},
	{"activejob", "test", "default"},
	{"actiontext", "test", "default"},
	{"activerecord", "mysql2:test", "mysqldb"},
	{"activerecord", "trilogy:test", "mysqldb"},
	{"activerecord", "postgresql:test", "postgresdb"},
	{"activerecord", "sqlite3:test", "default"},
}

// Tested on every ruby only.
var plainSubsystems = []subsystem{
	{"actioncable", "test", "postgresdb"},
	{"activestorage", "test", "default"},
	{"actionmailbox", "test", "default"},
	{"guides", "test", "default"},
}

// patch adjusts a step after the shared emitter built it.
type patch func(step *pipeline.CommandStep)

// groupedStep is a step with the group it is emitted in.
type groupedStep struct {
	group string
	step  *pipeline.CommandStep
}

type railsCI struct {
	bc     *buildcontext.Context
	rubies []ruby.Config
	def    ruby.Config
	steps  []groupedStep
}

// RailsCI generates the pipeline testing every Rails subsystem on the ruby matrix.
func RailsCI(bc *buildcontext.Context) (*pipeline.Pipeline, error) {
	p := pipeline.New()
	if bc.Skip() {
		return p, nil
	}

	if err := bc.SetupRubies(RubyMinors); err != nil {
		return nil, err
	}
	// master and YJIT lead the soft failing rubies
	bc.InsertRuby(ruby.Master())
	bc.InsertRuby(ruby.YJIT())

	def, ok := bc.DefaultRuby()
	if !ok {
		return nil, ErrEmptyMatrix
	}

	b := &railsCI{bc: bc, rubies: bc.Rubies(), def: def}
	b.isolatedSubsystems()
	b.plainSubsystems()
	b.specialCases()
	b.overrides()
	b.order()

	build := pipeline.Group(buildGroup)
	for _, r := range b.rubies {
		if step, ok := steps.DockerBuild(bc, r); ok {
			pipeline.AddGroupStep(build, step)
		}
	}
	p.Add(build)

	for _, g := range b.groups() {
		p.Add(g)
	}
	return p, nil
}

// stepFor adds task on the default ruby, leaving the ruby out of the label.
func (b *railsCI) stepFor(dir, task string, opts steps.RakeOptions, patches ...patch) {
	opts.Unlabelled = true
	b.add(b.def, dir, task, opts, patches...)
}

// stepsFor adds task on every ruby of the matrix.
func (b *railsCI) stepsFor(dir, task string, opts steps.RakeOptions, patches ...patch) {
	for _, r := range b.rubies {
		b.add(r, dir, task, opts, patches...)
	}
}

func (b *railsCI) add(r ruby.Config, dir, task string, opts steps.RakeOptions, patches ...patch) {
	if !b.bc.HasDir(dir) {
		return
	}

	step := steps.Rake(b.bc, r, dir, task, opts)
	if opts.Unlabelled {
		pipeline.SetSoftFail(step, false)
	}
	for _, fn := range patches {
		fn(step)
	}

	group := r.Name()
	if strings.Contains(task, isolatedGroup) {
		group = isolatedGroup
	}
	b.steps = append(b.steps, groupedStep{group: group, step: step})
}

func (b *railsCI) isolatedSubsystems() {
	for _, s := range isolatedSubsystems {
		if s.task == "trilogy:test" && !b.bc.SupportsTrilogy() {
			continue
		}
		opts := steps.RakeOptions{Service: s.service}
		b.stepsFor(s.dir, s.task, opts)

		if !b.bc.Mainline() {
			continue
		}
		switch s.dir {
		case "activerecord":
			b.stepFor(s.dir, strings.Replace(s.task, ":test", ":isolated_test", 1), opts, b.parallel("activerecord", 5))
		case "actiontext":
			// the isolated task was added during 7.1 development
			if b.bc.RakefileContains("actiontext", "task :isolated") {
				b.stepFor(s.dir, s.task+":isolated", opts)
			}
		default:
			b.stepFor(s.dir, s.task+":isolated", opts)
		}
	}
}

func (b *railsCI) plainSubsystems() {
	for _, s := range plainSubsystems {
		b.stepsFor(s.dir, s.task, steps.RakeOptions{Service: s.service})
	}
}

func (b *railsCI) specialCases() {
	rails := b.bc.RailsVersion()
	mysql := steps.RakeOptions{Service: "mysqldb"}

	if !rails.Less(rails51) {
		b.stepFor("activerecord", "sqlite3_mem:test", steps.RakeOptions{})
	}
	if !rails.Less(rails61x) {
		b.stepFor("activerecord", "mysql2:test", mysql, variant("prepared_statements"), setEnv("MYSQL_PREPARED_STATEMENTS", "true"))
	}
	b.stepFor("activerecord", "mysql2:test", mysql, variant("mysql_5_7"), setEnv("MYSQL_IMAGE", "mysql:5.7"))
	if b.bc.SupportsTrilogy() {
		b.stepFor("activerecord", "trilogy:test", mysql, variant("mysql_5_7"), setEnv("MYSQL_IMAGE", "mysql:5.7"))
	}
	if !rails.Less(rails5) {
		mariadb := "mariadb:latest"
		if rails.Less(rails6) {
			mariadb = "mariadb:10.2"
		}
		b.stepFor("activerecord", "mysql2:test", mysql, variant("mariadb"), setEnv("MYSQL_IMAGE", mariadb))
	}
	if b.bc.SupportsTrilogy() {
		b.stepFor("activerecord", "trilogy:test", mysql, variant("mariadb"), setEnv("MYSQL_IMAGE", "mariadb:latest"))
	}

	b.stepsFor("actioncable", "test:integration", steps.RakeOptions{}, func(step *pipeline.CommandStep) {
		if rails.Less(rails6) {
			pipeline.SetSoftFail(step, true)
			return
		}
		pipeline.SetRetryAutomatic(step, pipeline.AutomaticRetry{Limit: 3})
	})
	if b.bc.RakefileContains("actionview", "task :ujs") {
		b.stepFor("actionview", "test:ujs", steps.RakeOptions{Service: "actionview"}, func(step *pipeline.CommandStep) {
			pipeline.SetRetryAutomatic(step, pipeline.AutomaticRetry{Limit: 3})
		})
	}
	// queue_classic integration is flaky, see rails/rails#37517
	b.stepsFor("activejob", "test:integration", steps.RakeOptions{Service: "activejob"}, softFail)
	b.stepsFor("railties", "test", steps.RakeOptions{Service: "railties"}, b.parallel("railties", 12))

	if b.bc.TestWithMultipleVersionsOfRack(b.def) {
		rack2 := []string{"bundle install"}
		rackHead := []string{"rm Gemfile.lock", "bundle install"}
		b.stepFor("actionpack", "test", steps.RakeOptions{PreSteps: rack2},
			variant("rack-2"), setEnv("RACK", "~> 2.0"))
		b.stepFor("railties", "test", steps.RakeOptions{Service: "railties", PreSteps: rack2},
			b.parallel("railties", 12), variant("rack-2"), setEnv("RACK", "~> 2.0"))
		b.stepFor("actionpack", "test", steps.RakeOptions{PreSteps: rackHead},
			variant("rack-head"), setEnv("RACK", "head"), softFail)
		b.stepFor("railties", "test", steps.RakeOptions{Service: "railties", PreSteps: rackHead},
			b.parallel("railties", 12), variant("rack-head"), setEnv("RACK", "head"), softFail)
	}

	if b.bc.SupportsGuidesLint() {
		b.stepFor("guides", "guides:lint", steps.RakeOptions{}, relabel("guides lint"))
	}
	if b.bc.HasRailspect() {
		b.stepFor(".", "", steps.RakeOptions{}, relabel("railspect"), runs(railspectCommand))
	}
}

// overrides applies the known exceptions that keep older branches green.
func (b *railsCI) overrides() {
	for _, s := range b.steps {
		if s.step.Label == "activestorage (2.2)" {
			pipeline.SetSoftFail(s.step, true)
			break
		}
	}

	rails := b.bc.RailsVersion()
	if rails.Less(rails7) && !rails.Less(rails61) {
		b.remove(func(label string) bool {
			return label == "guides (2.7)" || label == "guides (3.0)"
		})
	}
	if rails.Less(rails70) {
		b.remove(guidesRegEx.MatchString)
	}
}

func (b *railsCI) remove(match func(label string) bool) {
	kept := b.steps[:0]
	for _, s := range b.steps {
		if !match(s.step.Label) {
			kept = append(kept, s)
		}
	}
	b.steps = kept
}

// order runs long steps first, isolated and non default test tasks last.
func (b *railsCI) order() {
	rank := func(s groupedStep) (int, int) {
		isolated, task := 1, 1
		if s.group == isolatedGroup {
			isolated = 2
		}
		if strings.Contains(strings.Join(s.step.Command, " "), "test:") {
			task = 2
		}
		return isolated, task
	}

	sort.SliceStable(b.steps, func(i, j int) bool {
		a, c := b.steps[i], b.steps[j]
		if a.step.TimeoutInMinutes != c.step.TimeoutInMinutes {
			return a.step.TimeoutInMinutes > c.step.TimeoutInMinutes
		}
		ai, at := rank(a)
		ci, ct := rank(c)
		if ai != ci {
			return ai < ci
		}
		if at != ct {
			return at < ct
		}
		return a.step.Label < c.step.Label
	})
}

// groups collects the sorted steps into groups in order of first appearance.
func (b *railsCI) groups() []*pipeline.GroupStep {
	var out []*pipeline.GroupStep
	index := map[string]*pipeline.GroupStep{}
	for _, s := range b.steps {
		g, ok := index[s.group]
		if !ok {
			g = pipeline.Group(s.group)
			index[s.group] = g
			out = append(out, g)
		}
		pipeline.AddGroupStep(g, s.step)
	}
	return out
}

func (b *railsCI) parallel(dir string, n int) patch {
	return func(step *pipeline.CommandStep) {
		if b.bc.RakefileContains(dir, parallelMarker) {
			pipeline.SetParallelism(step, n)
		}
	}
}

func variant(name string) patch {
	return func(step *pipeline.CommandStep) {
		pipeline.SetLabel(step, step.Label+" ["+name+"]")
	}
}

func relabel(label string) patch {
	return func(step *pipeline.CommandStep) {
		pipeline.SetLabel(step, label)
	}
}

// runs replaces the rake invocation with command.
func runs(command string) patch {
	return func(step *pipeline.CommandStep) {
		step.Command = pipeline.Commands{command}
	}
}

func setEnv(key, value string) patch {
	return func(step *pipeline.CommandStep) {
		pipeline.AddEnv(step, key, value)
	}
}

func softFail(step *pipeline.CommandStep) {
	pipeline.SetSoftFail(step, true)
}
