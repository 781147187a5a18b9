package stateful

import (
	"reflect"
	"testing"
)

type counter struct {
	Value int
}

func setValue(root Object, v *counter) UpdateResult {
	n, _ := root["value"].(int)
	if n == v.Value {
		return Unchanged
	}
	v.Value = n
	if n > 100 {
		return ChangedRestart
	}
	return Changed
}

func readValue(v counter, root Object) {
	root["value"] = v.Value
}

func TestServiceUpdate(t *testing.T) {
	t.Run("HandlersRunInOrder", func(t *testing.T) {
		svc := New(counter{})

		var calls []string
		svc.AddUpdateHandler(func() { calls = append(calls, "A") })
		svc.AddUpdateHandler(func() { calls = append(calls, "B") })
		svc.AddUpdateHandler(func() { calls = append(calls, "C") })

		if got := svc.Update(Object{"value": 1}, setValue); got != Changed {
			t.Fatalf("Update() = %v, want %v", got, Changed)
		}
		if want := []string{"A", "B", "C"}; !reflect.DeepEqual(calls, want) {
			t.Errorf("handler calls = %v, want %v", calls, want)
		}

		calls = nil
		if got := svc.Update(Object{"value": 500}, setValue); got != ChangedRestart {
			t.Fatalf("Update() = %v, want %v", got, ChangedRestart)
		}
		if want := []string{"A", "B", "C"}; !reflect.DeepEqual(calls, want) {
			t.Errorf("handler calls = %v, want %v", calls, want)
		}
	})

	t.Run("UnchangedSkipsHandlers", func(t *testing.T) {
		svc := New(counter{Value: 7})

		calls := 0
		svc.AddUpdateHandler(func() { calls++ })

		if got := svc.Update(Object{"value": 7}, setValue); got != Unchanged {
			t.Fatalf("Update() = %v, want %v", got, Unchanged)
		}
		if calls != 0 {
			t.Errorf("handler called %d times, want 0", calls)
		}
	})

	t.Run("UnchangedDiscardsCopy", func(t *testing.T) {
		svc := New(counter{Value: 3})

		svc.Update(nil, func(_ Object, v *counter) UpdateResult {
			v.Value = 99
			return Unchanged
		})

		if got := svc.Get().Value; got != 3 {
			t.Errorf("Value = %d, want 3", got)
		}
	})

	t.Run("WithoutPropagation", func(t *testing.T) {
		svc := New(counter{})

		calls := 0
		svc.AddUpdateHandler(func() { calls++ })

		if got := svc.UpdateWithoutPropagation(Object{"value": 42}, setValue); got != Changed {
			t.Fatalf("UpdateWithoutPropagation() = %v, want %v", got, Changed)
		}
		if calls != 0 {
			t.Errorf("handler called %d times, want 0", calls)
		}
		if got := svc.Get().Value; got != 42 {
			t.Errorf("Value = %d, want 42", got)
		}
	})

	t.Run("HandlerCanRead", func(t *testing.T) {
		svc := New(counter{})

		var seen int
		svc.AddUpdateHandler(func() {
			seen = svc.ReadObject(readValue)["value"].(int)
		})

		svc.Update(Object{"value": 5}, setValue)
		if seen != 5 {
			t.Errorf("handler saw %d, want 5", seen)
		}
	})
}

func TestServiceHandlers(t *testing.T) {
	t.Run("IDsStartAtOne", func(t *testing.T) {
		svc := New(counter{})

		first := svc.AddUpdateHandler(func() {})
		second := svc.AddUpdateHandler(func() {})

		if first != 1 || second != 2 {
			t.Errorf("IDs = %d, %d, want 1, 2", first, second)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		svc := New(counter{})

		var calls []string
		svc.AddUpdateHandler(func() { calls = append(calls, "A") })
		id := svc.AddUpdateHandler(func() { calls = append(calls, "B") })
		svc.AddUpdateHandler(func() { calls = append(calls, "C") })

		svc.RemoveUpdateHandler(id)
		if svc.HandlerCount() != 2 {
			t.Fatalf("HandlerCount() = %d, want 2", svc.HandlerCount())
		}

		svc.Update(Object{"value": 1}, setValue)
		if want := []string{"A", "C"}; !reflect.DeepEqual(calls, want) {
			t.Errorf("handler calls = %v, want %v", calls, want)
		}
	})

	t.Run("IDsNotReused", func(t *testing.T) {
		svc := New(counter{})

		id := svc.AddUpdateHandler(func() {})
		svc.RemoveUpdateHandler(id)
		next := svc.AddUpdateHandler(func() {})

		if next == id {
			t.Errorf("ID %d reused", id)
		}
	})

	t.Run("RemoveZeroIsNoop", func(t *testing.T) {
		svc := New(counter{})
		svc.AddUpdateHandler(func() {})

		svc.RemoveUpdateHandler(0)
		if svc.HandlerCount() != 1 {
			t.Errorf("HandlerCount() = %d, want 1", svc.HandlerCount())
		}
	})

	t.Run("SelfRemovalDuringDispatch", func(t *testing.T) {
		svc := New(counter{})

		var calls []string
		var id HandlerID
		id = svc.AddUpdateHandler(func() {
			calls = append(calls, "self")
			svc.RemoveUpdateHandler(id)
		})
		svc.AddUpdateHandler(func() { calls = append(calls, "other") })

		svc.Update(Object{"value": 1}, setValue)
		svc.Update(Object{"value": 2}, setValue)

		if want := []string{"self", "other", "other"}; !reflect.DeepEqual(calls, want) {
			t.Errorf("handler calls = %v, want %v", calls, want)
		}
	})
}

func TestUpdateResultString(t *testing.T) {
	tests := []struct {
		result UpdateResult
		want   string
	}{
		{Unchanged, "UNCHANGED"},
		{Changed, "CHANGED"},
		{ChangedRestart, "CHANGED_RESTART"},
		{UpdateResult(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.result, got, tt.want)
		}
	}
}
