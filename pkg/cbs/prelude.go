// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package cbs

// DefaultPrelude defines the functions every evaluation can call:: unless
// WithNoPrelude is given. Only #func blocks matter; other text is ignored.
const DefaultPrelude = `
{{#func clamp value low high}}{{min::{{max::{{arg::value}}::{{arg::low}}}}::{{arg::high}}}}{{/func}}
{{#func percent part whole}}{{fixnum::{{calc::{{arg::part}}/{{arg::whole}}*100}}::0}}%{{/func}}
{{#func plural count word}}{{arg::count}} {{arg::word}}{{#when::{{arg::count}}::isnot::1}}s{{/when}}{{/func}}
{{#func default value fallback}}{{#when::{{arg::value}}::is::}}{{arg::fallback}}{{:else}}{{arg::value}}{{/when}}{{/func}}
`
