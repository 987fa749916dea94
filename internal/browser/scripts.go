package browser

// JavaScript shared by the engines. Element helpers are written as functions
// taking the element first so every engine can bind it its own way.
const (
	// SetValueFunc assigns the value property and fires the events a user
	// edit would.
	SetValueFunc = `function(el, value) {
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`

	// SelectOptionFunc selects the option whose visible text matches and
	// reports whether one was found.
	SelectOptionFunc = `function(el, text) {
	var want = String(text).trim();
	for (var i = 0; i < el.options.length; i++) {
		if (el.options[i].text.trim() === want) {
			el.selectedIndex = i;
			el.options[i].selected = true;
			el.dispatchEvent(new Event('input', {bubbles: true}));
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
}`

	// AttributeFunc reads a property, falling back to the attribute of the
	// same name, the way WebDriver's getAttribute does. Missing values are "".
	AttributeFunc = `function(el, name) {
	var v = el[name];
	if (v === undefined || v === null || typeof v === 'object' || typeof v === 'function') {
		v = el.getAttribute(name);
	}
	return v === null || v === undefined ? '' : String(v);
}`

	// DisplayedFunc approximates WebDriver's element displayedness.
	DisplayedFunc = `function(el) {
	if (!el.isConnected) { return false; }
	var s = window.getComputedStyle(el);
	if (s.display === 'none' || s.visibility === 'hidden' || s.visibility === 'collapse') { return false; }
	var r = el.getBoundingClientRect();
	return r.width > 0 || r.height > 0;
}`

	// EnabledFunc reports whether a form control accepts input.
	EnabledFunc = `function(el) { return !el.disabled; }`

	// ReadyStateScript returns document.readyState.
	ReadyStateScript = `return document.readyState;`
)

// SetValueScript and SelectOptionScript expose the element helpers as
// WebDriver script bodies: arguments[0] is the element, arguments[1] the value.
const (
	SetValueScript     = "return (" + SetValueFunc + ").apply(null, arguments);"
	SelectOptionScript = "return (" + SelectOptionFunc + ").apply(null, arguments);"
)
