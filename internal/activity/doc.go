// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package activity defines the Activity envelope, the normalized representation
of one inbound unit of conversation handed to the pipeline by a transport.

An Activity carries plain/markdown text, typed attachments, suggested actions,
and weakly-typed side-channel metadata (entities and channel data) that may
contain citation payloads in several shapes. Timestamps are kept as raw wire
strings because providers routinely omit or mangle them; ParseTimestamp is the
single tolerant decoding point.
*/
package activity
