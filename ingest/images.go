/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package ingest

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeImages decodes base64 page images. A data URL prefix such as
// "data:image/png;base64," is accepted and stripped.
func DecodeImages(encoded []string) ([][]byte, error) {
	if len(encoded) == 0 {
		return nil, ErrNoImages
	}

	images := make([][]byte, 0, len(encoded))

	for i, e := range encoded {
		if _, after, ok := strings.Cut(e, ","); ok {
			e = after
		}

		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(e))
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", ErrInvalidImage, i, err)
		}

		if len(data) == 0 {
			return nil, fmt.Errorf("%w: image %d is empty", ErrInvalidImage, i)
		}

		images = append(images, data)
	}

	return images, nil
}
