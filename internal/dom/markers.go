package dom

import "strings"

// Marker attributes written onto host elements. They survive registry
// resets within one parsed snapshot and let every layer recognize work
// the pipeline has already done or UI the pipeline itself injected.
const (
	// MarkerPrefix namespaces everything this module writes into the host DOM.
	MarkerPrefix = "data-tl-"

	// MarkerProcessing marks an element currently inside the coordinator's
	// state machine.
	MarkerProcessing = "data-tl-processing"

	// MarkerProcessed marks an element whose affordance injection completed.
	// Its value is the element's derived identity.
	MarkerProcessed = "data-tl-processed"

	// MarkerAffordance marks the injected UI affordance container.
	MarkerAffordance = "data-tl-affordance"

	// MarkerFallbackActions marks a synthesized actions-bar substitute.
	MarkerFallbackActions = "data-tl-fallback-actions"
)

// IsOwnUI reports whether the element was injected by this module.
func (n *Node) IsOwnUI() bool {
	return n.HasAttr(MarkerAffordance) || n.HasAttr(MarkerFallbackActions)
}

// HasMarkerInChain reports whether the node or any ancestor carries the
// named marker. Used as the classifier's idempotence guard.
func (n *Node) HasMarkerInChain(marker string) bool {
	return n.Closest(func(cur *Node) bool { return cur.HasAttr(marker) }) != nil
}

// HasAnyMarker reports whether the node itself carries any attribute in
// the module's namespace.
func (n *Node) HasAnyMarker() bool {
	if n == nil {
		return false
	}
	for _, a := range n.n.Attr {
		if strings.HasPrefix(a.Key, MarkerPrefix) {
			return true
		}
	}
	return false
}
