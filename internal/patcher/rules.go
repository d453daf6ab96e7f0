package patcher

import "regexp"

const initScript = `${1}// Ensure the modular editor flag is on
    await page.addInitScript(() => {
      try { localStorage.setItem('editor:phase2:modular', '1'); } catch {}
    });

    ${2}`

const selectableBlock = `<SelectableBlock
                        blockId={blockId}
                        isSelected={isSelected}
                        isEditable={isEditMode}
                        onSelect={handleBlockSelect}
                        blockType="${2}"
                        blockIndex={index}
                        onOpenProperties={handleOpenProperties}
                        isDraggable={dragEnabled}
                    >`

// DefaultRules returns the built-in rules that move end-to-end tests and the
// WYSIWYG editor onto the column-based editor layout.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "editor-ready",
			Kind:    KindLiteral,
			Find:    `await expect(page.locator('[data-editor="modular-enhanced"]')).toBeVisible({ timeout: 15000 });`,
			Replace: `await expect(page.getByTestId('modular-layout')).toBeVisible({ timeout: 15000 });`,
		},
		{
			Name:    "step-navigator-visible",
			Kind:    KindLiteral,
			Find:    `await expect(page.locator('[data-testid="step-navigator"]').first()).toBeVisible();`,
			Replace: `await expect(page.getByTestId('column-steps')).toBeVisible();`,
		},
		{
			Name:    "modular-init-script",
			Kind:    KindRegex,
			Find:    `(test\.beforeEach\(async \(\{ page \}\) => \{\s+)(await page\.goto)`,
			Replace: initScript,
		},
		{
			Name:    "template-query",
			Kind:    KindLiteral,
			Find:    "resource=quiz21StepsComplete",
			Replace: "template=quiz21StepsComplete",
		},
		{
			Name: "navigate-to-step",
			Kind: KindRegex,
			Find: regexp.QuoteMeta("const stepKey = `step-${String(stepNumber).padStart(2, '0')}`;") +
				`\s+` +
				regexp.QuoteMeta("await page.locator(`[data-testid=\"step-nav-${stepKey}\"]`).first().click();"),
			Replace: "await page.locator(`[data-testid=\"step-navigator-item\"][data-step-order=\"$${stepNumber}\"]`).first().click();",
		},
		{Name: "canvas-column", Kind: KindLiteral, Find: `data-testid="canvas-column"`, Replace: `data-testid="column-canvas"`},
		{Name: "properties-panel", Kind: KindLiteral, Find: `data-testid="properties-panel"`, Replace: `data-testid="column-properties"`},
		{Name: "block-library", Kind: KindLiteral, Find: `data-testid="block-library"`, Replace: `data-testid="column-library"`},
		{Name: "sidebar-left", Kind: KindLiteral, Find: `[data-testid="sidebar-left"]`, Replace: `[data-testid="column-library"]`},
		{
			Name:    "column-test-id",
			Kind:    KindRegex,
			Find:    `page\.locator\('\[data-testid="(column-canvas|column-properties|column-library)"\]'\)`,
			Replace: `page.getByTestId('${1}')`,
		},
		{
			Name:    "selectable-block-props",
			Kind:    KindRegex,
			Find:    "<SelectableBlock blockId=\\{`\\$\\{step\\.id\\}-([^`]+)`\\} label=\"([^\"]+)\" isEditable=\\{isEditMode\\}>",
			Replace: selectableBlock,
		},
	}
}
