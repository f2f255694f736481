// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package authz enforces display ownership with Casbin (spec §4.7,
// §9): subject = admin id, object = display code, action = own|control.
// Policies are a flat access-control list rather than a role hierarchy —
// ownership is assigned per (admin, display) pair, not inherited through
// a role graph, so the matcher is a plain equality check rather than the
// teacher's keyMatch/role-grouping model. Grants persist to a CSV policy
// file via Casbin's own file adapter, the same construction the teacher
// uses for its RBAC policies.
package authz
