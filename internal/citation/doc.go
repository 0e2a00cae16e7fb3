// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package citation extracts, deduplicates, and groups document references from
the several encodings agents embed them in.

Supported encodings, each decoded by an independent attempt:

  - schema "Message" entities carrying a citation list, mined with regex for
    "source:" tokens, document filenames, and page numbers
  - schema "Claim" entities, mined the same way
  - channel-data feedback citations (feedbackLoop.properties.textCitations)
  - a legacy inline JSON array embedded in the message body, engaged only
    when no structured encoding produced anything; malformed payloads get one
    jsonrepair pass before being skipped
  - attachments with a JSON content type, decoded like the legacy array

Results merge into one list, deduplicate on (source document, page, content)
with first-seen order preserved, and group by source document. Each group
renders a numbered marker with a page list ("page 3", "page 3, 7",
"pages 2, 5-6"), a tooltip of truncated content snippets, and the first
available reference path. A parse failure in any one encoding is logged and
skipped; extraction as a whole never fails.
*/
package citation
