// internal/browser/snapshot.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d3vnull/restitch/api/schemas"
	"go.uber.org/zap"
)

// snapshotLimit caps how many elements one capture returns. Healing only
// needs the identifying elements, not the whole render tree.
const snapshotLimit = 400

// harvestScript collects the visible, identifiable elements of the page.
// Boxes are reported in viewport relative percentages so snapshots stay
// comparable across window sizes. Generated selectors prefer ids and fall
// back to an nth-of-type path.
var harvestScript = `(() => {
	const vw = Math.max(window.innerWidth, 1);
	const vh = Math.max(window.innerHeight, 1);
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'summary', 'label']);
	const interactiveRoles = new Set(['button', 'link', 'tab', 'menuitem', 'checkbox', 'radio']);

	const cssPath = (el) => {
		if (el.id) return '#' + CSS.escape(el.id);
		const parts = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE && parts.length < 6) {
			let part = node.nodeName.toLowerCase();
			if (node.id) {
				parts.unshift(part + '#' + CSS.escape(node.id));
				break;
			}
			const parent = node.parentElement;
			if (parent) {
				const siblings = Array.from(parent.children).filter(c => c.nodeName === node.nodeName);
				if (siblings.length > 1) part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};

	const out = [];
	for (const el of document.querySelectorAll('*')) {
		if (out.length >= ` + fmt.Sprint(snapshotLimit) + `) break;
		const tag = el.nodeName.toLowerCase();
		if (tag === 'html' || tag === 'body' || tag === 'script' || tag === 'style' || tag === 'noscript') continue;

		const rect = el.getBoundingClientRect();
		if (rect.width <= 0 || rect.height <= 0) continue;
		if (rect.bottom < 0 || rect.right < 0 || rect.top > vh || rect.left > vw) continue;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;

		const attrs = {};
		for (const a of el.attributes) attrs[a.name] = a.value;
		const role = attrs['role'] || '';
		const editable = attrs['contenteditable'] === '' || attrs['contenteditable'] === 'true';
		const isInteractive = interactiveTags.has(tag) || interactiveRoles.has(role) || editable || !!el.onclick;

		// Keep only elements a healer could identify or interact with.
		const identifiable = isInteractive || attrs['id'] || attrs['data-testid'] ||
			attrs['aria-label'] || attrs['name'] || role;
		if (!identifiable) continue;

		let text = (el.innerText || el.value || '').trim();
		if (text.length > 64) text = text.slice(0, 64);

		out.push({
			tag: tag,
			selector: cssPath(el),
			text: text,
			box: {
				x: rect.left / vw * 100,
				y: rect.top / vh * 100,
				width: rect.width / vw * 100,
				height: rect.height / vh * 100
			},
			attributes: attrs,
			is_interactive: isInteractive
		});
	}
	return out;
})()`

// Snapshot captures the currently visible, identifiable elements.
func (s *Session) Snapshot(ctx context.Context) (*schemas.Snapshot, error) {
	raw, err := s.Evaluate(ctx, harvestScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot capture failed: %w", err)
	}
	snap, err := parseSnapshot(raw)
	if err != nil {
		return nil, err
	}

	var url string
	if rawURL, err := s.Evaluate(ctx, `window.location.href`); err == nil {
		_ = json.Unmarshal(rawURL, &url)
	}
	snap.URL = url

	s.logger.Debug("Captured element snapshot",
		zap.String("url", url),
		zap.Int("elements", len(snap.Elements)))
	return snap, nil
}

// parseSnapshot decodes the harvest script output.
func parseSnapshot(raw json.RawMessage) (*schemas.Snapshot, error) {
	var elements []schemas.VisibleElement
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("snapshot decode failed: %w", err)
	}
	return &schemas.Snapshot{
		CapturedAt: time.Now(),
		Elements:   elements,
	}, nil
}
