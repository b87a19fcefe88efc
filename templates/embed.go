/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package templates

import "embed"

// Templates holds the vault pages: the dashboard, the data vault with its
// test detail view, and the consultant chat. Shared chrome lives in
// header.html and footer.html.
//
//go:embed *.html
var Templates embed.FS
