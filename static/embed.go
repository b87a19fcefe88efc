/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package static

import "embed"

// Static contains the stylesheet and scripts served at the site root.
//
//go:embed *.css *.js
var Static embed.FS
