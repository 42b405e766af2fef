// Package config provides capsule's configuration surface.
//
// It covers three concerns:
//
//   - User settings: an optional TOML file (~/.config/capsule/config.toml)
//     overriding the fixed image tag, container name, hostname, default
//     permission mode and worktree retention.
//   - Host identity: the invoking user's name, UID and GID, propagated into
//     the image build and container run so file ownership is correct on the
//     host.
//   - Profile staging: copying the host's Claude credentials and merging
//     ~/.claude.json into the embedded template, placed into the build
//     context before the image build and deleted immediately after.
package config
