package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vyasa-labs/granthika/model"
)

func TestInsertMention(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	entities := newEntitiesHandler(t, db)
	handler, err := NewMentionsDBHandler(db, false)
	require.NoError(t, err)

	lakshmana := insertTestEntity(t, entities, "Lakshmana", model.EntityTypePerson)

	t.Run("Insert valid mention", func(t *testing.T) {
		mention := &model.TextMention{
			TextUnitID: "ayodhya.40.5",
			EntityKey:  lakshmana.Key,
			SpanStart:  3,
			SpanEnd:    12,
			Confidence: 0.92,
			SourceType: model.MentionSourceAutomated,
		}

		err := handler.InsertMention(mention)
		assert.NoError(t, err)
		assert.False(t, mention.CreatedAt.IsZero())
		assert.Equal(t, model.ValidationPending, mention.ValidationStatus,
			"mentions start pending unless the caller says otherwise")
	})

	t.Run("Explicit validation status is stored", func(t *testing.T) {
		mention := &model.TextMention{
			TextUnitID:       "ayodhya.40.6",
			EntityKey:        lakshmana.Key,
			SpanStart:        0,
			SpanEnd:          9,
			Confidence:       1.0,
			SourceType:       model.MentionSourceManual,
			ValidationStatus: model.ValidationValidated,
		}

		require.NoError(t, handler.InsertMention(mention))

		stored, err := handler.SelectMentionsByUnit("ayodhya.40.6")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, model.ValidationValidated, stored[0].ValidationStatus)
	})

	t.Run("Inverted span returns ErrInvalidSpan", func(t *testing.T) {
		mention := &model.TextMention{
			TextUnitID: "ayodhya.40.5",
			EntityKey:  lakshmana.Key,
			SpanStart:  12,
			SpanEnd:    3,
			Confidence: 0.92,
			SourceType: model.MentionSourceAutomated,
		}

		err := handler.InsertMention(mention)
		assert.ErrorIs(t, err, model.ErrInvalidSpan)
	})

	t.Run("Zero-length span returns ErrInvalidSpan", func(t *testing.T) {
		mention := &model.TextMention{
			TextUnitID: "ayodhya.40.5",
			EntityKey:  lakshmana.Key,
			SpanStart:  3,
			SpanEnd:    3,
			SourceType: model.MentionSourceAutomated,
		}

		err := handler.InsertMention(mention)
		assert.ErrorIs(t, err, model.ErrInvalidSpan)
	})

	t.Run("Unknown entity returns ErrUnknownEntity", func(t *testing.T) {
		mention := &model.TextMention{
			TextUnitID: "ayodhya.40.5",
			EntityKey:  model.EntityKey("nobody"),
			SpanStart:  0,
			SpanEnd:    5,
			SourceType: model.MentionSourceAutomated,
		}

		err := handler.InsertMention(mention)
		assert.ErrorIs(t, err, model.ErrUnknownEntity)
	})
}

func TestSelectAndCountMentions(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	entities := newEntitiesHandler(t, db)
	handler, err := NewMentionsDBHandler(db, false)
	require.NoError(t, err)

	jatayu := insertTestEntity(t, entities, "Jatayu", model.EntityTypePerson)
	sampati := insertTestEntity(t, entities, "Sampati", model.EntityTypePerson)

	for i, unit := range []string{"aranya.49.1", "aranya.49.2", "aranya.50.1"} {
		require.NoError(t, handler.InsertMention(&model.TextMention{
			TextUnitID: unit,
			EntityKey:  jatayu.Key,
			SpanStart:  i,
			SpanEnd:    i + 6,
			Confidence: 0.9,
			SourceType: model.MentionSourceAutomated,
		}))
	}

	t.Run("Select mentions by entity", func(t *testing.T) {
		mentions, err := handler.SelectMentionsByEntity(jatayu.Key, 100)
		assert.NoError(t, err)
		assert.Len(t, mentions, 3)
	})

	t.Run("Select mentions by unit", func(t *testing.T) {
		mentions, err := handler.SelectMentionsByUnit("aranya.49.1")
		assert.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, jatayu.Key, mentions[0].EntityKey)
	})

	t.Run("Count mentions for entities", func(t *testing.T) {
		counts, err := handler.CountMentionsForEntities([]string{jatayu.Key, sampati.Key})
		assert.NoError(t, err)
		assert.Equal(t, 3, counts[jatayu.Key])
		_, found := counts[sampati.Key]
		assert.False(t, found, "entities without mentions are absent from the counts")
	})

	t.Run("Transfer mentions between entities", func(t *testing.T) {
		moved, err := handler.TransferMentions(jatayu.Key, sampati.Key)
		assert.NoError(t, err)
		assert.Equal(t, 3, moved)

		counts, err := handler.CountMentionsForEntities([]string{jatayu.Key, sampati.Key})
		require.NoError(t, err)
		assert.Equal(t, 3, counts[sampati.Key])
	})
}
