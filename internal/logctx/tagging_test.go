package logctx

import (
	"context"
	"devlogd/internal/global"
	"reflect"
	"testing"
)

func TestCtxTags(t *testing.T) {
	base := context.WithValue(context.Background(), global.LogTagsKey, []string{"Daemon"})

	tests := []struct {
		name string
		ctx  context.Context
		want []string
	}{
		{"missing", context.Background(), []string{}},
		{"wrong type", context.WithValue(context.Background(), global.LogTagsKey, "Daemon"), []string{}},
		{"append", AppendCtxTag(base, global.NSCollect), []string{"Daemon", "Collector"}},
		{"append then remove", RemoveLastCtxTag(AppendCtxTag(base, global.NSKmsg)), []string{"Daemon"}},
		{"remove from empty", RemoveLastCtxTag(context.Background()), []string{}},
		{"overwrite", OverwriteCtxTag(base, []string{"Transport", "Listener", "0"}), []string{"Transport", "Listener", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetTagList(tt.ctx)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("tags mismatch: got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestCtxTagsCopyOnWrite(t *testing.T) {
	parent := AppendCtxTag(context.Background(), "Daemon")
	left := AppendCtxTag(parent, "Left")
	right := AppendCtxTag(parent, "Right")

	if got := GetTagList(parent); !reflect.DeepEqual(got, []string{"Daemon"}) {
		t.Fatalf("parent mutated: %v", got)
	}
	if got := GetTagList(left); !reflect.DeepEqual(got, []string{"Daemon", "Left"}) {
		t.Fatalf("left branch wrong: %v", got)
	}
	if got := GetTagList(right); !reflect.DeepEqual(got, []string{"Daemon", "Right"}) {
		t.Fatalf("right branch wrong: %v", got)
	}

	list := []string{"A", "B"}
	overwritten := OverwriteCtxTag(context.Background(), list)
	list[0] = "changed"
	if got := GetTagList(overwritten); got[0] != "A" {
		t.Fatalf("overwrite shares caller slice: %v", got)
	}
}
