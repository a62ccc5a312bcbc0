// Package canon maps physical tile types and site instance names onto
// canonical, position-independent keys.
//
// Two tiles that are mirror images of each other (CLBLL_L and CLBLL_R) share a
// canonical type, and two sites that fill the same role in their tiles (the
// lower RAMB18 of any BRAM tile) share a site key. Feature observations
// recorded against different physical instances therefore accumulate into
// the same named tag.
package canon
