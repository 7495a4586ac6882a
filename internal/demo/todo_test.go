package demo

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestTodoViewMarkup(t *testing.T) {
	var b bytes.Buffer
	todo := Todo{List: []string{"milk", "<eggs>"}, Item: `a "b"`}
	if err := todoView(todo).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := b.String()
	for _, want := range []string{
		`<input id="item" type="text" tx-swap="tx_todo" tx-value="item" value="a &#34;b&#34;">`,
		`<button id="add" tx-swap="tx_todo" tx-onclick="todo_add">add</button>`,
		`<li>milk <button class="remove" tx-swap="tx_todo" tx-onclick="todo_remove?i=0">x</button></li>`,
		`<li>&lt;eggs&gt; <button class="remove" tx-swap="tx_todo" tx-onclick="todo_remove?i=1">x</button></li>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("todoView() = %s\nmissing %s", got, want)
		}
	}
}

func TestPageBodyWrapsRegion(t *testing.T) {
	var b bytes.Buffer
	if err := pageBody(Todo{List: []string{}}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := b.String()
	start := strings.Index(got, "<!--tx:tx_todo-->")
	end := strings.Index(got, "<!--tx:tx_todo_e-->")
	if start < 0 || end < start {
		t.Fatalf("pageBody() = %s, want the region markers in order", got)
	}
	if !strings.Contains(got[start:end], `id="list"`) {
		t.Errorf("list rendered outside the region: %s", got)
	}
	if reset := strings.Index(got, `id="reset"`); reset < end {
		t.Errorf("reset trigger should follow the region: %s", got)
	}
}
