// Package app opens a workspace: studio config, environment, logger, local
// database and, when configured, the remote mirror.
package app

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/migrate"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

// Options tweak Open. Zero values read everything from the workspace.
type Options struct {
	// Owner overrides AKMS_OWNER_ID and the studio default owner.
	Owner string
	// LocalOnly skips the remote mirror even when a URL is configured.
	LocalOnly bool
}

// Context is an opened workspace. Close releases both databases.
type Context struct {
	Workspace string
	Config    *config.Config
	Env       config.Env
	Log       *logrus.Logger
	Engine    engine.Engine
	Remote    *sql.DB

	local *sql.DB
}

// Open loads config and env, migrates the local store and wires the engine.
func Open(workspace string, opts Options) (*Context, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	env, err := config.LoadEnv(workspace)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(env)
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	c := &Context{Workspace: workspace, Config: cfg, Env: env, Log: log, local: conn}

	var rs remote.Store
	if env.RemoteConfigured() && !opts.LocalOnly {
		rconn, err := db.OpenRemote(db.RemoteConfig{URL: env.RemoteDatabaseURL, MaxOpenConns: env.RemoteMaxConns})
		if err != nil {
			conn.Close()
			return nil, err
		}
		c.Remote = rconn
		rs = remote.Postgres{DB: rconn}
		log.WithField("workspace", workspace).Debug("remote mirror enabled")
	}
	c.Engine = engine.New(repo.Repo{DB: conn}, rs, cfg, log)

	owner := strings.TrimSpace(opts.Owner)
	if owner != "" {
		c.Config.Studio.OwnerID = owner
	} else if env.OwnerID != "" {
		c.Config.Studio.OwnerID = env.OwnerID
	}
	return c, nil
}

// Owner is the studio owner commands act for.
func (c *Context) Owner() string {
	return c.Config.Studio.OwnerID
}

// MigrateRemote applies the remote schema.
func (c *Context) MigrateRemote() error {
	if c.Remote == nil {
		return fmt.Errorf("remote database not configured (set AKMS_REMOTE_DATABASE_URL)")
	}
	return migrate.MigrateRemote(c.Remote)
}

func (c *Context) Close() error {
	if c.Remote != nil {
		c.Remote.Close()
	}
	return c.local.Close()
}
