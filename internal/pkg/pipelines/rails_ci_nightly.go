// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package pipelines

import (
	"github.com/rails/buildkite-config/internal/pkg/buildcontext"
	"github.com/rails/buildkite-config/internal/pkg/ruby"
	"github.com/rails/buildkite-config/internal/pkg/steps"
	"github.com/rails/buildkite-config/pkg/buildkite/pipeline"
)

// RailsCINightly generates the nightly pipeline. It adds ruby master, YJIT and the
// debug build to the matrix, runs everything on master by default and groups the
// steps per ruby.
func RailsCINightly(bc *buildcontext.Context) (*pipeline.Pipeline, error) {
	p := pipeline.New()
	if bc.Skip() {
		return p, nil
	}

	if err := bc.SetupRubies(RubyMinors); err != nil {
		return nil, err
	}
	bc.AddRuby(ruby.Master())
	bc.AddRuby(ruby.YJIT())
	bc.AddRuby(ruby.MasterDebug())
	bc.SetDefaultRuby(ruby.Master())

	rubies := bc.Rubies()
	build := pipeline.Group(buildGroup)
	for _, r := range rubies {
		if step, ok := steps.DockerBuild(bc, r); ok {
			pipeline.AddGroupStep(build, step)
		}
	}
	p.Add(build)

	n := &nightly{bc: bc}
	for _, r := range rubies {
		p.Add(steps.RubyGroup(r, n.rubySteps(r)...))
	}

	isolated := pipeline.Group(isolatedGroup)
	pipeline.AddGroupStep(isolated, n.isolatedSteps()...)
	p.Add(isolated)

	return p, nil
}

type nightly struct {
	bc *buildcontext.Context
}

func (n *nightly) rake(r ruby.Config, dir, task string, opts steps.RakeOptions, patches ...patch) *pipeline.CommandStep {
	step := steps.Rake(n.bc, r, dir, task, opts)
	for _, fn := range patches {
		fn(step)
	}
	return step
}

func (n *nightly) parallel(dir string, count int) patch {
	return func(step *pipeline.CommandStep) {
		if n.bc.RakefileContains(dir, parallelMarker) {
			pipeline.SetParallelism(step, count)
		}
	}
}

// rubySteps are the steps of one ruby group. Variants run on the default ruby only,
// the rack variants from Rails 7.1 on.
func (n *nightly) rubySteps(r ruby.Config) []*pipeline.CommandStep {
	def, _ := n.bc.DefaultRuby()
	isDefault := def.Equal(r)
	multipleRacks := n.bc.TestWithMultipleVersionsOfRack(r)
	rails := n.bc.RailsVersion()

	mysql := steps.RakeOptions{Service: "mysqldb"}
	rack2 := []string{"bundle install"}
	rackHead := []string{"rm Gemfile.lock", "bundle install"}

	var out []*pipeline.CommandStep
	add := func(step *pipeline.CommandStep) { out = append(out, step) }

	add(n.rake(r, "actioncable", "", steps.RakeOptions{
		Service:  "postgresdb",
		PreSteps: []string{"bundle exec rake -f activerecord/Rakefile db:postgresql:rebuild"},
	}))
	add(n.rake(r, "actionmailbox", "", steps.RakeOptions{}))
	add(n.rake(r, "actionmailer", "", steps.RakeOptions{}))
	add(n.rake(r, "actionpack", "", steps.RakeOptions{}))
	if multipleRacks {
		add(n.rake(r, "actionpack", "", steps.RakeOptions{PreSteps: rack2},
			variant("rack-2"), setEnv("RACK", "~> 2.0")))
		add(n.rake(r, "actionpack", "", steps.RakeOptions{PreSteps: rackHead},
			variant("rack-head"), setEnv("RACK", "head"), softFail))
	}
	add(n.rake(r, "actiontext", "", steps.RakeOptions{}))
	add(n.rake(r, "actionview", "", steps.RakeOptions{}))
	add(n.rake(r, "activejob", "", steps.RakeOptions{}))
	add(n.rake(r, "activemodel", "", steps.RakeOptions{}))

	add(n.rake(r, "activerecord", "mysql2:test", mysql))
	if isDefault {
		if !rails.Less(rails5) {
			mariadb := "mariadb:latest"
			if rails.Less(rails6) {
				mariadb = "mariadb:10.2"
			}
			add(n.rake(r, "activerecord", "mysql2:test", steps.RakeOptions{Service: "mariadb"},
				variant("mariadb"), setEnv("MYSQL_IMAGE", mariadb)))
		}
		add(n.rake(r, "activerecord", "mysql2:test", mysql,
			variant("mysql_5_7"), setEnv("MYSQL_IMAGE", "mysql:5.7")))
		if !rails.Less(rails61x) {
			add(n.rake(r, "activerecord", "mysql2:test", mysql,
				variant("prepared_statements"), setEnv("MYSQL_PREPARED_STATEMENTS", "true")))
		}
	}

	add(n.rake(r, "activerecord", "postgresql:test", steps.RakeOptions{Service: "postgresdb"}))
	add(n.rake(r, "activerecord", "sqlite3:test", steps.RakeOptions{}))
	if isDefault && !rails.Less(rails51) {
		add(n.rake(r, "activerecord", "sqlite3_mem:test", steps.RakeOptions{}))
	}

	if n.bc.SupportsTrilogy() {
		add(n.rake(r, "activerecord", "trilogy:test", mysql))
		if isDefault {
			add(n.rake(r, "activerecord", "trilogy:test", steps.RakeOptions{Service: "mariadb"},
				variant("mariadb"), setEnv("MYSQL_IMAGE", "mariadb:latest")))
			add(n.rake(r, "activerecord", "trilogy:test", mysql,
				variant("mysql_5_7"), setEnv("MYSQL_IMAGE", "mysql:5.7")))
		}
	}

	add(n.rake(r, "activestorage", "", steps.RakeOptions{}))
	add(n.rake(r, "activesupport", "", steps.RakeOptions{}))
	add(n.rake(r, "guides", "", steps.RakeOptions{}))

	railties := steps.RakeOptions{Service: "railties"}
	add(n.rake(r, "railties", "", railties, n.parallel("railties", 12)))
	if multipleRacks {
		railties.PreSteps = rack2
		add(n.rake(r, "railties", "", railties,
			n.parallel("railties", 12), variant("rack-2"), setEnv("RACK", "~> 2.0")))
		railties.PreSteps = rackHead
		add(n.rake(r, "railties", "", railties,
			n.parallel("railties", 12), variant("rack-head"), setEnv("RACK", "head"), softFail))
	}

	add(n.rake(r, "actioncable", "test:integration", steps.RakeOptions{}, func(step *pipeline.CommandStep) {
		if rails.Less(rails6) {
			pipeline.SetSoftFail(step, true)
			return
		}
		pipeline.SetRetryAutomatic(step, pipeline.RetryOn(-1, 3))
	}))
	if isDefault && n.bc.RakefileContains("actionview", "task :ujs") {
		add(n.rake(r, "actionview", "test:ujs", steps.RakeOptions{Service: "actionview"}, func(step *pipeline.CommandStep) {
			pipeline.SetRetryAutomatic(step, pipeline.RetryOn(-1, 3))
		}))
	}
	add(n.rake(r, "activejob", "test:integration", steps.RakeOptions{Service: "activejob"}, func(step *pipeline.CommandStep) {
		if rails.Less(rails5) {
			pipeline.SetSoftFail(step, true)
		}
	}))

	return out
}

// isolatedSteps run the isolated suites on the default ruby.
func (n *nightly) isolatedSteps() []*pipeline.CommandStep {
	def, _ := n.bc.DefaultRuby()

	databases := []subsystem{
		{"activerecord", "mysql2:isolated_test", "mysqldb"},
		{"activerecord", "postgresql:isolated_test", "postgresdb"},
		{"activerecord", "sqlite3:isolated_test", "default"},
	}
	if n.bc.SupportsTrilogy() {
		databases = append(databases, subsystem{"activerecord", "trilogy:isolated_test", "mysqldb"})
	}

	var out []*pipeline.CommandStep
	for _, s := range databases {
		out = append(out, n.rake(def, s.dir, s.task, steps.RakeOptions{Service: s.service}, n.parallel("activerecord", 5)))
	}
	for _, dir := range []string{"actionmailer", "actionpack", "actionview", "activejob", "activemodel", "activesupport"} {
		out = append(out, n.rake(def, dir, "test:isolated", steps.RakeOptions{}))
	}
	return out
}
